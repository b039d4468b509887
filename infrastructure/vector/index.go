// Package vector provides an in-memory cosine-similarity index
// implementing the domain vector contract. It backs RAG chunk search
// and the cache's semantic-fallback path.
package vector

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/vector"
)

// DefaultThreshold is the minimum cosine similarity for a search hit.
const DefaultThreshold = 0.85

type record struct {
	rec *vector.Record
	seq uint64
}

// Index is an in-memory flat index with cosine similarity search.
// Dimension is auto-detected from the first insert when configured as 0.
type Index struct {
	records   map[string]*record
	dimension int
	threshold float32
	seq       uint64
	mu        sync.RWMutex
}

// Option configures the index.
type Option func(*Index)

// WithDimension fixes the embedding dimensionality up front.
func WithDimension(dim int) Option {
	return func(i *Index) {
		i.dimension = dim
	}
}

// WithThreshold sets the minimum similarity for search results.
func WithThreshold(threshold float32) Option {
	return func(i *Index) {
		i.threshold = threshold
	}
}

// NewIndex creates an empty similarity index.
func NewIndex(opts ...Option) *Index {
	idx := &Index{
		records:   make(map[string]*record),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Insert stores or replaces a record.
func (i *Index) Insert(ctx context.Context, r *vector.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" {
		return vector.ErrInvalidID
	}
	if len(r.Embedding) == 0 {
		return vector.ErrInvalidEmbedding
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dimension == 0 {
		i.dimension = len(r.Embedding)
	} else if len(r.Embedding) != i.dimension {
		return vector.ErrDimensionMismatch
	}

	stored := &vector.Record{
		ID:         r.ID,
		Embedding:  make([]float32, len(r.Embedding)),
		Metadata:   copyMetadata(r.Metadata),
		InsertedAt: r.InsertedAt,
	}
	copy(stored.Embedding, r.Embedding)
	if stored.InsertedAt.IsZero() {
		stored.InsertedAt = time.Now()
	}

	i.seq++
	i.records[r.ID] = &record{rec: stored, seq: i.seq}
	return nil
}

// Search returns up to k results with similarity at or above the
// threshold, descending. Equal similarities order most-recently-inserted
// first. An empty result obligates the caller to treat the lookup as a
// miss requiring fresh computation.
func (i *Index) Search(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, vector.ErrInvalidEmbedding
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.dimension > 0 && len(embedding) != i.dimension {
		return nil, vector.ErrDimensionMismatch
	}

	type scored struct {
		rec   *record
		score float32
	}

	candidates := make([]scored, 0, len(i.records))
	for _, r := range i.records {
		sim := cosineSimilarity(embedding, r.rec.Embedding)
		if sim < i.threshold {
			continue
		}
		candidates = append(candidates, scored{rec: r, score: sim})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].rec.seq > candidates[b].rec.seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	if k < 0 {
		k = 0
	}

	results := make([]vector.Result, k)
	for n := 0; n < k; n++ {
		results[n] = vector.Result{
			ID:         candidates[n].rec.rec.ID,
			Similarity: candidates[n].score,
			Metadata:   copyMetadata(candidates[n].rec.rec.Metadata),
		}
	}
	return results, nil
}

// Remove deletes a record by ID. Takes effect for searches immediately.
func (i *Index) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return vector.ErrInvalidID
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.records[id]; !ok {
		return vector.ErrNotFound
	}
	delete(i.records, id)
	return nil
}

// Count returns the number of live records.
func (i *Index) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	return int64(len(i.records)), nil
}

// Stats implements vector.StatsProvider.
func (i *Index) Stats() vector.Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return vector.Stats{
		Records:   int64(len(i.records)),
		Dimension: i.dimension,
		Threshold: i.threshold,
	}
}

// Threshold returns the configured minimum similarity.
func (i *Index) Threshold() float32 {
	return i.threshold
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Ensure Index implements the domain contracts.
var (
	_ vector.Index         = (*Index)(nil)
	_ vector.StatsProvider = (*Index)(nil)
)
