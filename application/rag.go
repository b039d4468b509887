package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/domain/document"
)

// RAGCache caches document chunks with their embeddings. Documents are
// chunked by a rune budget; each chunk owns one vector record, and
// removing a document cascades to its chunks and vectors.
type RAGCache struct {
	m *Manager

	mu     sync.RWMutex
	docs   map[string]*document.Document
	chunks map[string]*document.Chunk
}

// NewRAGCache wraps a manager for document chunk caching.
func NewRAGCache(m *Manager) *RAGCache {
	return &RAGCache{
		m:      m,
		docs:   make(map[string]*document.Document),
		chunks: make(map[string]*document.Chunk),
	}
}

// splitChunks slices content into rune-budget chunks. The final chunk
// may be shorter; content never splits mid-rune.
func splitChunks(content string, budget int) []string {
	runes := []rune(content)
	if budget <= 0 {
		budget = 512
	}
	chunks := make([]string, 0, (len(runes)+budget-1)/budget)
	for start := 0; start < len(runes); start += budget {
		end := start + budget
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// AddDocument chunks the content, stores each chunk, and registers its
// embedding. Embeddings are positional: embeddings[i] belongs to chunk i,
// and the count must match the number of chunks produced. Re-adding a
// document ID replaces the previous document.
func (r *RAGCache) AddDocument(ctx context.Context, docID, content string, embeddings [][]float32, metadata map[string]string) ([]string, error) {
	if docID == "" {
		return nil, document.ErrInvalidID
	}
	if content == "" {
		return nil, document.ErrEmptyContent
	}

	parts := splitChunks(content, r.m.chunkSize)
	if embeddings != nil && len(embeddings) != len(parts) {
		return nil, document.ErrChunkMismatch
	}

	if err := r.RemoveDocument(ctx, docID); err != nil && err != document.ErrNotFound {
		return nil, err
	}

	doc := &document.Document{
		ID:       docID,
		ChunkIDs: make([]string, 0, len(parts)),
		Metadata: metadata,
		AddedAt:  time.Now(),
	}
	added := make([]*document.Chunk, 0, len(parts))

	for i, part := range parts {
		chunkID := uuid.NewString()
		key := r.m.keyer.ChunkKey(docID, i)

		meta := map[string]string{
			"document_id": docID,
			"chunk_id":    chunkID,
		}
		for k, v := range metadata {
			meta[k] = v
		}

		var embedding []float32
		if embeddings != nil {
			embedding = embeddings[i]
		}

		req := Request{
			Key:       key,
			Embedding: embedding,
			Modality:  cache.ModalityDocumentChunk,
			Metadata:  meta,
		}
		if _, err := r.m.Put(ctx, req, []byte(part)); err != nil {
			for _, c := range added {
				_ = r.m.Delete(ctx, c.Key)
			}
			return nil, err
		}

		added = append(added, &document.Chunk{
			ID:         chunkID,
			DocumentID: docID,
			Index:      i,
			Content:    part,
			Key:        key,
			Metadata:   meta,
		})
		doc.ChunkIDs = append(doc.ChunkIDs, chunkID)
	}

	r.mu.Lock()
	r.docs[docID] = doc
	for _, c := range added {
		r.chunks[c.ID] = c
	}
	r.mu.Unlock()

	return doc.ChunkIDs, nil
}

// SearchSimilarChunks returns up to k document chunks whose embeddings
// score at or above the similarity threshold.
func (r *RAGCache) SearchSimilarChunks(ctx context.Context, queryEmbedding []float32, k int) ([]*Result, error) {
	results, err := r.m.SearchSimilar(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	chunks := results[:0]
	for _, res := range results {
		if res.Entry.Modality == cache.ModalityDocumentChunk {
			chunks = append(chunks, res)
		}
	}
	return chunks, nil
}

// GetChunk retrieves a chunk by its ID.
func (r *RAGCache) GetChunk(ctx context.Context, chunkID string) (*Result, error) {
	r.mu.RLock()
	chunk, ok := r.chunks[chunkID]
	r.mu.RUnlock()
	if !ok {
		return &Result{Hit: false}, nil
	}
	return r.m.Get(ctx, Request{Key: chunk.Key, Modality: cache.ModalityDocumentChunk})
}

// GetDocument returns the stored document record.
func (r *RAGCache) GetDocument(docID string) (*document.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[docID]
	return doc, ok
}

// RemoveDocument deletes a document and cascades to its chunks and
// their vector records.
func (r *RAGCache) RemoveDocument(ctx context.Context, docID string) error {
	r.mu.Lock()
	doc, ok := r.docs[docID]
	if !ok {
		r.mu.Unlock()
		return document.ErrNotFound
	}
	chunks := make([]*document.Chunk, 0, len(doc.ChunkIDs))
	for _, id := range doc.ChunkIDs {
		if c, ok := r.chunks[id]; ok {
			chunks = append(chunks, c)
		}
		delete(r.chunks, id)
	}
	delete(r.docs, docID)
	r.mu.Unlock()

	for _, c := range chunks {
		if err := r.m.Delete(ctx, c.Key); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns manager-level statistics.
func (r *RAGCache) GetStats(ctx context.Context) Stats {
	return r.m.Stats(ctx)
}
