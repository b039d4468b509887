package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/modelcache/application"
	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/domain/vector"
	"github.com/felixgeelhaar/modelcache/infrastructure/fingerprint"
	"github.com/felixgeelhaar/modelcache/infrastructure/storage/memory"
)

func newManager(t *testing.T, opts ...application.Option) *application.Manager {
	t.Helper()
	m, err := application.NewManager(opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return m
}

func TestManager_ExactRoundTrip(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	req := application.Request{
		Text:     "what is the capital of France",
		Modality: cache.ModalityText,
		Context:  fingerprint.Context{UserID: "u1", Model: "gpt"},
	}
	key, err := m.Put(ctx, req, []byte("Paris"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key == "" {
		t.Fatal("expected non-empty key")
	}

	res, err := m.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit {
		t.Fatal("expected hit")
	}
	if res.Source != application.SourceExact {
		t.Errorf("source = %q, want %q", res.Source, application.SourceExact)
	}
	if string(res.Entry.Payload) != "Paris" {
		t.Errorf("payload = %q, want %q", res.Entry.Payload, "Paris")
	}
}

func TestManager_NormalizationHitsAcrossWhitespaceAndCase(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	kctx := fingerprint.Context{UserID: "u1"}
	if _, err := m.Put(ctx, application.Request{
		Text:     "Hello   World",
		Modality: cache.ModalityText,
		Context:  kctx,
	}, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := m.Get(ctx, application.Request{
		Text:     "  hello world ",
		Modality: cache.ModalityText,
		Context:  kctx,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit {
		t.Fatal("expected normalized text to hit")
	}
}

func TestManager_MissIsNotAnError(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	res, err := m.Get(context.Background(), application.Request{
		Text:     "never cached",
		Modality: cache.ModalityText,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatal("expected miss")
	}
}

func TestManager_EmptyRequestRejected(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	if _, err := m.Get(context.Background(), application.Request{}); err != cache.ErrInvalidKey {
		t.Fatalf("Get err = %v, want ErrInvalidKey", err)
	}
	if _, err := m.Put(context.Background(), application.Request{}, nil); err != cache.ErrInvalidKey {
		t.Fatalf("Put err = %v, want ErrInvalidKey", err)
	}
}

func TestManager_PrefixMatch(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	put := application.Request{
		Tokens:   []int{1, 2, 3, 4},
		Modality: cache.ModalityKVCache,
	}
	if _, err := m.Put(ctx, put, []byte("kv-blob")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := m.Get(ctx, application.Request{
		Tokens:   []int{1, 2, 3, 4, 5},
		Modality: cache.ModalityKVCache,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit {
		t.Fatal("expected prefix hit")
	}
	if res.Source != application.SourcePrefix {
		t.Errorf("source = %q, want %q", res.Source, application.SourcePrefix)
	}
	if res.MatchedTokens != 4 {
		t.Errorf("matched tokens = %d, want 4", res.MatchedTokens)
	}
	if string(res.Entry.Payload) != "kv-blob" {
		t.Errorf("payload = %q, want kv-blob", res.Entry.Payload)
	}
}

func TestManager_PrefixDisabled(t *testing.T) {
	t.Parallel()
	m := newManager(t, application.WithoutPrefixMatching())
	ctx := context.Background()

	if _, err := m.Put(ctx, application.Request{
		Tokens:   []int{1, 2, 3},
		Modality: cache.ModalityKVCache,
	}, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := m.Get(ctx, application.Request{
		Tokens:   []int{1, 2, 3, 4},
		Modality: cache.ModalityKVCache,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatal("prefix stage should be off")
	}
}

func TestManager_SimilarityMatch(t *testing.T) {
	t.Parallel()
	m := newManager(t, application.WithSimilarityThreshold(0.9))
	ctx := context.Background()

	if _, err := m.Put(ctx, application.Request{
		Text:      "original question",
		Embedding: []float32{1, 0, 0},
		Modality:  cache.ModalityText,
	}, []byte("answer")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Nearly parallel vector, cosine well above 0.9.
	res, err := m.Get(ctx, application.Request{
		Text:      "different wording",
		Embedding: []float32{0.99, 0.05, 0},
		Modality:  cache.ModalityText,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit {
		t.Fatal("expected similarity hit")
	}
	if res.Source != application.SourceSimilarity {
		t.Errorf("source = %q, want %q", res.Source, application.SourceSimilarity)
	}
	if res.Similarity < 0.9 {
		t.Errorf("similarity = %v, want >= 0.9", res.Similarity)
	}

	// Orthogonal vector stays a miss.
	res, err = m.Get(ctx, application.Request{
		Text:      "unrelated",
		Embedding: []float32{0, 1, 0},
		Modality:  cache.ModalityText,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatal("orthogonal embedding should miss")
	}
}

func TestManager_SimilarityDisabled(t *testing.T) {
	t.Parallel()
	m := newManager(t, application.WithoutSimilaritySearch())
	ctx := context.Background()

	if _, err := m.Put(ctx, application.Request{
		Text:      "a",
		Embedding: []float32{1, 0},
		Modality:  cache.ModalityText,
	}, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := m.Get(ctx, application.Request{
		Text:      "b",
		Embedding: []float32{1, 0},
		Modality:  cache.ModalityText,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatal("similarity stage should be off")
	}
}

func TestManager_DimensionMismatchIsAnError(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	if _, err := m.Put(ctx, application.Request{
		Text:      "a",
		Embedding: []float32{1, 0, 0},
		Modality:  cache.ModalityText,
	}, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := m.Put(ctx, application.Request{
		Text:      "b",
		Embedding: []float32{1, 0},
		Modality:  cache.ModalityText,
	}, []byte("v"))
	if err != vector.ErrDimensionMismatch {
		t.Fatalf("Put err = %v, want ErrDimensionMismatch", err)
	}

	// The rejected write must not leave a stored entry behind.
	res, err := m.Get(ctx, application.Request{Text: "b", Modality: cache.ModalityText})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatal("rolled-back put should not be retrievable")
	}
}

func TestManager_DeleteCascades(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	req := application.Request{
		Tokens:    []int{7, 8, 9},
		Embedding: []float32{0, 1},
		Modality:  cache.ModalityKVCache,
	}
	key, err := m.Put(ctx, req, []byte("v"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	res, err := m.Get(ctx, application.Request{
		Tokens:    []int{7, 8, 9, 10},
		Embedding: []float32{0, 1},
		Modality:  cache.ModalityKVCache,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatal("deleted entry should not hit via any stage")
	}

	// Deleting again is not an error.
	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}
}

func TestManager_StaleIndexReferencesPruned(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	key, err := m.Put(ctx, application.Request{
		Tokens:    []int{1, 2},
		Embedding: []float32{1, 0},
		Modality:  cache.ModalityKVCache,
	}, []byte("v"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Clear drops entries but leaves index references behind; lookups
	// prune them and report misses.
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	res, err := m.Get(ctx, application.Request{
		Tokens:    []int{1, 2, 3},
		Embedding: []float32{1, 0},
		Modality:  cache.ModalityKVCache,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatalf("cleared entry %s should not hit", key)
	}

	stats := m.Stats(ctx)
	if stats.PrefixPaths != 0 {
		t.Errorf("prefix paths = %d, want 0 after pruning", stats.PrefixPaths)
	}
	if stats.Vectors != 0 {
		t.Errorf("vectors = %d, want 0 after pruning", stats.Vectors)
	}
}

func TestManager_BatchPutAndGet(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	items := make([]application.PutItem, 0, 5)
	reqs := make([]application.Request, 0, 5)
	for i := 0; i < 5; i++ {
		req := application.Request{
			Text:     fmt.Sprintf("prompt %d", i),
			Modality: cache.ModalityText,
		}
		items = append(items, application.PutItem{Request: req, Value: []byte(fmt.Sprintf("answer %d", i))})
		reqs = append(reqs, req)
	}

	keys, err := m.BatchPut(ctx, items)
	if err != nil {
		t.Fatalf("BatchPut: %v", err)
	}
	if len(keys) != 5 {
		t.Fatalf("keys = %d, want 5", len(keys))
	}

	results, err := m.BatchGet(ctx, reqs)
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	for i, res := range results {
		if !res.Hit {
			t.Errorf("item %d: expected hit", i)
			continue
		}
		if want := fmt.Sprintf("answer %d", i); string(res.Entry.Payload) != want {
			t.Errorf("item %d: payload = %q, want %q", i, res.Entry.Payload, want)
		}
	}
}

func TestManager_ExplicitTTLExpires(t *testing.T) {
	t.Parallel()
	m := newManager(t, application.WithCleanupInterval(10*time.Millisecond))
	ctx := context.Background()

	req := application.Request{
		Text:     "short lived",
		Modality: cache.ModalityText,
		TTL:      20 * time.Millisecond,
	}
	if _, err := m.Put(ctx, req, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, err := m.Get(ctx, req)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !res.Hit {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("entry did not expire")
}

func TestManager_SharedTierReadThrough(t *testing.T) {
	t.Parallel()

	shared := memory.NewStore()
	m := newManager(t, application.WithSharedTier(shared), application.WithFastBudget(1<<20))
	ctx := context.Background()

	// Seed the shared tier directly; the fast tier knows nothing.
	entry := &cache.Entry{
		Key:       cache.Key("shared-only"),
		Modality:  cache.ModalityText,
		Payload:   []byte("from shared"),
		Tier:      cache.TierShared,
		Priority:  3,
		CreatedAt: time.Now(),
	}
	if err := shared.Set(ctx, entry); err != nil {
		t.Fatalf("seed shared: %v", err)
	}

	res, err := m.Get(ctx, application.Request{Key: entry.Key, Modality: cache.ModalityText})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit {
		t.Fatal("expected read-through hit")
	}
	if string(res.Entry.Payload) != "from shared" {
		t.Errorf("payload = %q", res.Entry.Payload)
	}
}

func TestManager_StatsCounters(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	ctx := context.Background()

	req := application.Request{Text: "counted", Modality: cache.ModalityText}
	if _, err := m.Put(ctx, req, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := m.Get(ctx, req); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := m.Get(ctx, application.Request{Text: "absent", Modality: cache.ModalityText}); err != nil {
		t.Fatalf("Get: %v", err)
	}

	stats := m.Stats(ctx)
	if stats.Hits[application.SourceExact] != 1 {
		t.Errorf("exact hits = %d, want 1", stats.Hits[application.SourceExact])
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", stats.HitRate)
	}
	if stats.Modalities[cache.ModalityText] != 2 {
		t.Errorf("text lookups = %d, want 2", stats.Modalities[cache.ModalityText])
	}
	if stats.Fast.Entries != 1 {
		t.Errorf("fast entries = %d, want 1", stats.Fast.Entries)
	}
	if stats.Tracked != 1 {
		t.Errorf("tracked = %d, want 1", stats.Tracked)
	}
}

func TestManager_ClosedOperationsFail(t *testing.T) {
	t.Parallel()
	m, err := application.NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("repeat Close: %v", err)
	}

	ctx := context.Background()
	if _, err := m.Get(ctx, application.Request{Text: "x"}); err != cache.ErrClosed {
		t.Errorf("Get err = %v, want ErrClosed", err)
	}
	if _, err := m.Put(ctx, application.Request{Text: "x"}, nil); err != cache.ErrClosed {
		t.Errorf("Put err = %v, want ErrClosed", err)
	}
	if err := m.Delete(ctx, cache.Key("x")); err != cache.ErrClosed {
		t.Errorf("Delete err = %v, want ErrClosed", err)
	}
}

func TestManager_ConcurrentPutsAndGets(t *testing.T) {
	t.Parallel()
	m := newManager(t, application.WithFastBudget(1<<20))
	ctx := context.Background()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				req := application.Request{
					Text:     fmt.Sprintf("w%d-i%d", w, i),
					Modality: cache.ModalityText,
				}
				if _, err := m.Put(ctx, req, []byte(req.Text)); err != nil {
					t.Errorf("Put: %v", err)
					return
				}
				res, err := m.Get(ctx, req)
				if err != nil {
					t.Errorf("Get: %v", err)
					return
				}
				if !res.Hit {
					t.Errorf("read-your-writes violated for %s", req.Text)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
