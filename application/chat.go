package application

import (
	"context"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/fingerprint"
)

// SourceRAG marks a hit served from document chunks after the regular
// pipeline missed.
const SourceRAG = "rag"

// Segment is one cached unit of a conversation: a prompt/response pair
// scoped to a user, session, and model.
type Segment struct {
	Content   string
	UserID    string
	SessionID string
	Model     string
	Embedding []float32
	Priority  int
	TTL       time.Duration
	Metadata  map[string]string
}

// ChatCache caches conversation segments keyed by normalized content and
// scope. An optional RAG fallback serves document chunks when no segment
// matches.
type ChatCache struct {
	m   *Manager
	rag *RAGCache
}

// ChatOption configures a ChatCache.
type ChatOption func(*ChatCache)

// WithRAGFallback serves similar document chunks when segment lookup
// misses.
func WithRAGFallback(rag *RAGCache) ChatOption {
	return func(c *ChatCache) {
		c.rag = rag
	}
}

// NewChatCache wraps a manager for conversation caching.
func NewChatCache(m *Manager, opts ...ChatOption) *ChatCache {
	c := &ChatCache{m: m}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (s Segment) request() Request {
	return Request{
		Text:      s.Content,
		Embedding: s.Embedding,
		Modality:  cache.ModalityText,
		Context: fingerprint.Context{
			UserID:    s.UserID,
			SessionID: s.SessionID,
			Model:     s.Model,
		},
		Priority: s.Priority,
		TTL:      s.TTL,
		Metadata: s.Metadata,
	}
}

// CacheSegment stores the segment content under its normalized
// fingerprint.
func (c *ChatCache) CacheSegment(ctx context.Context, seg Segment) (cache.Key, error) {
	return c.m.Put(ctx, seg.request(), []byte(seg.Content))
}

// GetSegment looks the segment up through the full pipeline.
func (c *ChatCache) GetSegment(ctx context.Context, seg Segment) (*Result, error) {
	return c.m.Get(ctx, seg.request())
}

// GetSegmentWithRAGFallback looks the segment up and, on a miss, serves
// the most similar document chunk when a fallback is configured and the
// segment carries an embedding.
func (c *ChatCache) GetSegmentWithRAGFallback(ctx context.Context, seg Segment) (*Result, error) {
	res, err := c.m.Get(ctx, seg.request())
	if err != nil {
		return nil, err
	}
	if res.Hit || c.rag == nil || len(seg.Embedding) == 0 {
		return res, nil
	}

	chunks, err := c.rag.SearchSimilarChunks(ctx, seg.Embedding, c.m.searchK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return res, nil
	}
	best := chunks[0]
	best.Source = SourceRAG
	return best, nil
}

// GetStats returns manager-level statistics.
func (c *ChatCache) GetStats(ctx context.Context) Stats {
	return c.m.Stats(ctx)
}
