// Package document provides the domain model for RAG documents.
// A document is an ordered sequence of immutable chunks; each chunk
// owns exactly one vector record, and deleting a document cascades to
// its chunks and their vectors.
package document

import (
	"errors"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Document groups an ordered set of chunks under one ID.
type Document struct {
	ID       string            `json:"id"`
	ChunkIDs []string          `json:"chunk_ids"`
	Metadata map[string]string `json:"metadata,omitempty"`
	AddedAt  time.Time         `json:"added_at"`
}

// Chunk is one immutable slice of a document's content.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Index      int               `json:"index"`
	Content    string            `json:"content"`
	Key        cache.Key         `json:"key"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Domain errors for document operations.
var (
	// ErrNotFound indicates the requested document was not found.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidID indicates the document ID is empty or invalid.
	ErrInvalidID = errors.New("invalid document ID")

	// ErrEmptyContent indicates the document content is empty.
	ErrEmptyContent = errors.New("empty document content")

	// ErrChunkMismatch indicates embeddings were supplied for a different
	// number of chunks than the content produced.
	ErrChunkMismatch = errors.New("embedding count does not match chunk count")
)
