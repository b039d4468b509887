package vector_test

import (
	"context"
	"errors"
	"testing"

	domainvector "github.com/felixgeelhaar/modelcache/domain/vector"
	"github.com/felixgeelhaar/modelcache/infrastructure/vector"
)

func TestIndex_InsertAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("identical embedding is a perfect hit", func(t *testing.T) {
		t.Parallel()

		idx := vector.NewIndex()
		if err := idx.Insert(ctx, &domainvector.Record{ID: "a", Embedding: []float32{1, 0, 0}}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(results))
		}
		if results[0].ID != "a" {
			t.Errorf("ID = %s, want a", results[0].ID)
		}
		if results[0].Similarity < 0.999 {
			t.Errorf("Similarity = %f, want ~1.0", results[0].Similarity)
		}
	})

	t.Run("results never fall below threshold", func(t *testing.T) {
		t.Parallel()

		idx := vector.NewIndex(vector.WithThreshold(0.85))
		// Orthogonal vector: similarity 0, must be excluded.
		if err := idx.Insert(ctx, &domainvector.Record{ID: "orth", Embedding: []float32{0, 1, 0}}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 0 {
			t.Errorf("below-threshold result returned: %+v", results)
		}
	})

	t.Run("results ordered descending by similarity", func(t *testing.T) {
		t.Parallel()

		idx := vector.NewIndex(vector.WithThreshold(0.5))
		vectors := map[string][]float32{
			"close":  {1, 0.1, 0},
			"closer": {1, 0.01, 0},
			"exact":  {1, 0, 0},
		}
		for id, emb := range vectors {
			if err := idx.Insert(ctx, &domainvector.Record{ID: id, Embedding: emb}); err != nil {
				t.Fatalf("Insert(%s) error = %v", id, err)
			}
		}

		results, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("len(results) = %d, want 3", len(results))
		}
		for i := 1; i < len(results); i++ {
			if results[i].Similarity > results[i-1].Similarity {
				t.Errorf("results not descending at %d: %f > %f", i, results[i].Similarity, results[i-1].Similarity)
			}
		}
		if results[0].ID != "exact" {
			t.Errorf("first result = %s, want exact", results[0].ID)
		}
	})

	t.Run("k caps result count", func(t *testing.T) {
		t.Parallel()

		idx := vector.NewIndex(vector.WithThreshold(0.5))
		for _, id := range []string{"a", "b", "c"} {
			if err := idx.Insert(ctx, &domainvector.Record{ID: id, Embedding: []float32{1, 0}}); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
		}

		results, err := idx.Search(ctx, []float32{1, 0}, 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 2 {
			t.Errorf("len(results) = %d, want 2", len(results))
		}
	})

	t.Run("equal similarity orders most recent first", func(t *testing.T) {
		t.Parallel()

		idx := vector.NewIndex(vector.WithThreshold(0.5))
		if err := idx.Insert(ctx, &domainvector.Record{ID: "first", Embedding: []float32{1, 0}}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := idx.Insert(ctx, &domainvector.Record{ID: "second", Embedding: []float32{1, 0}}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		results, err := idx.Search(ctx, []float32{1, 0}, 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if results[0].ID != "second" {
			t.Errorf("first result = %s, want second (most recent)", results[0].ID)
		}
	})
}

func TestIndex_DimensionValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	idx := vector.NewIndex()
	if err := idx.Insert(ctx, &domainvector.Record{ID: "a", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	err := idx.Insert(ctx, &domainvector.Record{ID: "b", Embedding: []float32{1, 0}})
	if !errors.Is(err, domainvector.ErrDimensionMismatch) {
		t.Errorf("Insert() error = %v, want ErrDimensionMismatch", err)
	}

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	if !errors.Is(err, domainvector.ErrDimensionMismatch) {
		t.Errorf("Search() error = %v, want ErrDimensionMismatch", err)
	}

	if err := idx.Insert(ctx, &domainvector.Record{ID: "c", Embedding: nil}); !errors.Is(err, domainvector.ErrInvalidEmbedding) {
		t.Errorf("Insert(nil embedding) error = %v, want ErrInvalidEmbedding", err)
	}
}

func TestIndex_Remove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	idx := vector.NewIndex(vector.WithThreshold(0.5))
	if err := idx.Insert(ctx, &domainvector.Record{ID: "a", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := idx.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	// Deletion is visible to searches immediately.
	results, err := idx.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Error("removed record returned by search")
	}

	if err := idx.Remove(ctx, "a"); !errors.Is(err, domainvector.ErrNotFound) {
		t.Errorf("Remove(absent) error = %v, want ErrNotFound", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}
