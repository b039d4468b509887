// Package api provides the public API for the modelcache library.
// This file provides the cache entry points and façade exports.
package api

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/modelcache/application"
	"github.com/felixgeelhaar/modelcache/domain/cache"
	domainconfig "github.com/felixgeelhaar/modelcache/domain/config"
	infraconfig "github.com/felixgeelhaar/modelcache/infrastructure/config"
	"github.com/felixgeelhaar/modelcache/infrastructure/logging"
	"github.com/felixgeelhaar/modelcache/infrastructure/resilience"
	badgerstore "github.com/felixgeelhaar/modelcache/infrastructure/storage/badger"
	redisstore "github.com/felixgeelhaar/modelcache/infrastructure/storage/redis"
	"github.com/felixgeelhaar/modelcache/infrastructure/telemetry"
)

// Re-export core cache types.
type (
	// Key is a content-addressable cache key.
	Key = cache.Key
	// Modality identifies the kind of cached artifact.
	Modality = cache.Modality
	// Tier identifies a storage tier.
	Tier = cache.Tier
	// Entry is the unit of storage.
	Entry = cache.Entry
	// Occupancy describes how full a tier is.
	Occupancy = cache.Occupancy

	// Manager coordinates the lookup pipeline and tiers.
	Manager = application.Manager
	// Option configures the manager.
	Option = application.Option
	// Request describes a cache operation.
	Request = application.Request
	// Result is the outcome of a lookup.
	Result = application.Result
	// PutItem pairs a request with the payload to store.
	PutItem = application.PutItem
	// Stats aggregates cache statistics.
	Stats = application.Stats

	// ChatCache caches conversation segments.
	ChatCache = application.ChatCache
	// Segment is one cached conversation unit.
	Segment = application.Segment
	// RAGCache caches document chunks with embeddings.
	RAGCache = application.RAGCache
	// AudioCache caches audio feature blocks.
	AudioCache = application.AudioCache
	// VideoCache caches video segment features.
	VideoCache = application.VideoCache
	// VideoSegment is a cached block of video features.
	VideoSegment = application.VideoSegment
	// PrefillCache pairs responses with KV attention prefixes.
	PrefillCache = application.PrefillCache
	// PrefillResult is the outcome of a prefill lookup.
	PrefillResult = application.PrefillResult
)

// Modalities.
const (
	ModalityText          = cache.ModalityText
	ModalityAudio         = cache.ModalityAudio
	ModalityVideo         = cache.ModalityVideo
	ModalityDocumentChunk = cache.ModalityDocumentChunk
	ModalityKVCache       = cache.ModalityKVCache
)

// Tiers.
const (
	TierFast    = cache.TierFast
	TierShared  = cache.TierShared
	TierDurable = cache.TierDurable
)

// Lookup sources.
const (
	SourceExact      = application.SourceExact
	SourcePrefix     = application.SourcePrefix
	SourceSimilarity = application.SourceSimilarity
	SourceRAG        = application.SourceRAG
)

// Cache errors.
var (
	// ErrInvalidKey indicates a key is invalid or could not be derived.
	ErrInvalidKey = cache.ErrInvalidKey
	// ErrEntryTooLarge indicates an entry exceeds a tier's byte budget.
	ErrEntryTooLarge = cache.ErrEntryTooLarge
	// ErrTierUnavailable indicates a tier backend cannot be reached.
	ErrTierUnavailable = cache.ErrTierUnavailable
	// ErrClosed indicates the cache has been closed.
	ErrClosed = cache.ErrClosed
)

// NewManager creates a cache manager with the given options.
func NewManager(opts ...Option) (*Manager, error) {
	return application.NewManager(opts...)
}

// NewChatCache wraps a manager for conversation caching.
func NewChatCache(m *Manager, opts ...application.ChatOption) *ChatCache {
	return application.NewChatCache(m, opts...)
}

// WithRAGFallback serves similar document chunks when segment lookup misses.
func WithRAGFallback(rag *RAGCache) application.ChatOption {
	return application.WithRAGFallback(rag)
}

// NewRAGCache wraps a manager for document chunk caching.
func NewRAGCache(m *Manager) *RAGCache {
	return application.NewRAGCache(m)
}

// NewAudioCache wraps a manager for audio feature caching.
func NewAudioCache(m *Manager) *AudioCache {
	return application.NewAudioCache(m)
}

// NewVideoCache wraps a manager for video segment caching.
func NewVideoCache(m *Manager) *VideoCache {
	return application.NewVideoCache(m)
}

// NewPrefillCache wraps a manager for prefill caching.
func NewPrefillCache(m *Manager) *PrefillCache {
	return application.NewPrefillCache(m)
}

// NewManagerFromConfig builds a fully wired manager from a validated
// configuration: logging, eviction, the configured tiers behind the
// resilience stack, and telemetry. Closing the manager closes the tier
// backends.
func NewManagerFromConfig(config *domainconfig.CacheConfig) (*Manager, error) {
	result, err := infraconfig.NewBuilder(config).Build()
	if err != nil {
		return nil, err
	}

	logging.Init(result.Logging)

	opts := []Option{
		application.WithFastBudget(result.FastBudgetBytes),
		application.WithCleanupInterval(result.CleanupInterval),
		application.WithEviction(result.Eviction),
		application.WithSimilarityThreshold(result.SimilarityThreshold),
	}
	if !result.PrefixMatching {
		opts = append(opts, application.WithoutPrefixMatching())
	}
	if !result.SimilaritySearch {
		opts = append(opts, application.WithoutSimilaritySearch())
	}

	var closers []interface{ Close() error }
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	if result.Shared != nil {
		store, err := redisstore.NewStore(*result.Shared)
		if err != nil {
			return nil, errors.Join(domainconfig.ErrBuildFailed, err)
		}
		closers = append(closers, store)
		guarded := resilience.NewBackend(store, result.Resilience)
		opts = append(opts, application.WithSharedTier(guarded))
	}

	if result.Durable != nil {
		store, err := badgerstore.NewStore(*result.Durable)
		if err != nil {
			closeAll()
			return nil, errors.Join(domainconfig.ErrBuildFailed, err)
		}
		closers = append(closers, store)
		opts = append(opts, application.WithDurableTier(store))
	}

	if result.TelemetryEnabled {
		provider := telemetry.NewMetricsProvider(telemetry.MetricsConfig{
			MeterName: result.MeterName,
		})
		opts = append(opts, application.WithMetrics(provider))
	}

	m, err := application.NewManager(opts...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return m, nil
}

// NewManagerFromFile loads, validates, and builds a manager from a
// configuration file.
func NewManagerFromFile(path string) (*Manager, error) {
	config, err := infraconfig.NewLoader().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return NewManagerFromConfig(config)
}
