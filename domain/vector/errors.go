package vector

import "errors"

// Domain errors for the similarity index.
var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("vector not found")

	// ErrInvalidID indicates the record ID is empty or invalid.
	ErrInvalidID = errors.New("invalid vector ID")

	// ErrInvalidEmbedding indicates the embedding is empty or invalid.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrDimensionMismatch indicates the embedding dimension doesn't match
	// the index's dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
