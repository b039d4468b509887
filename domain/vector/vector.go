// Package vector provides the domain contract for approximate
// nearest-neighbor search over embeddings. It backs both RAG chunk
// retrieval and the cache's semantic-fallback path.
package vector

import (
	"context"
	"time"
)

// Record is an embedding with back-references into the cache.
// Metadata links to a cache entry key or document chunk; the index
// never owns entries.
type Record struct {
	ID         string            `json:"id"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	InsertedAt time.Time         `json:"inserted_at"`
}

// Result is one similarity search hit.
type Result struct {
	ID         string            `json:"id"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Index defines similarity search over embedding vectors.
// All embeddings within one index instance share a dimensionality.
type Index interface {
	// Insert stores or replaces a record.
	Insert(ctx context.Context, record *Record) error

	// Search returns up to k results with similarity at or above the
	// index threshold, ordered descending by similarity. Equal
	// similarities order most-recently-inserted first. An empty result
	// is a cache miss, not an error.
	Search(ctx context.Context, embedding []float32, k int) ([]Result, error)

	// Remove deletes a record by ID. The deletion takes effect for
	// searches immediately.
	Remove(ctx context.Context, id string) error

	// Count returns the number of live records.
	Count(ctx context.Context) (int64, error)
}

// Stats provides index statistics.
type Stats struct {
	Records   int64
	Dimension int
	Threshold float32
}

// StatsProvider is an optional interface for indices that expose statistics.
type StatsProvider interface {
	Stats() Stats
}
