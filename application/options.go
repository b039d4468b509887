package application

import (
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/eviction"
	"github.com/felixgeelhaar/modelcache/infrastructure/telemetry"
)

// Config contains configuration for the manager.
type Config struct {
	// FastBudgetBytes is the byte budget of the in-memory tier (0 = unbounded).
	FastBudgetBytes int64
	// CleanupInterval is how often expired entries are swept from the fast tier.
	CleanupInterval time.Duration
	// Eviction tunes the eviction policy and TTL prediction.
	Eviction eviction.Config
	// Shared is the shared tier backend (nil = fast/durable only).
	Shared cache.Backend
	// Durable is the durable tier backend (nil = no durable tier).
	Durable cache.Backend
	// SimilarityThreshold is the minimum cosine similarity for a semantic hit.
	SimilarityThreshold float64
	// PrefixMatching enables the token prefix lookup stage.
	PrefixMatching bool
	// SimilaritySearch enables the semantic lookup stage.
	SimilaritySearch bool
	// SearchK is how many candidates the semantic stage considers.
	SearchK int
	// ChunkSize is the rune budget per document chunk.
	ChunkSize int
	// Metrics receives cache telemetry.
	Metrics telemetry.Metrics
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FastBudgetBytes:     256 << 20,
		CleanupInterval:     time.Minute,
		Eviction:            eviction.DefaultConfig(),
		SimilarityThreshold: 0.85,
		PrefixMatching:      true,
		SimilaritySearch:    true,
		SearchK:             4,
		ChunkSize:           512,
		Metrics:             &telemetry.NoopMetricsProvider{},
	}
}

// Option configures the manager.
type Option func(*Config)

// WithFastBudget sets the byte budget of the in-memory tier.
func WithFastBudget(budget int64) Option {
	return func(c *Config) {
		c.FastBudgetBytes = budget
	}
}

// WithCleanupInterval sets the expiry sweep interval.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Config) {
		c.CleanupInterval = d
	}
}

// WithEviction sets the eviction policy configuration.
func WithEviction(cfg eviction.Config) Option {
	return func(c *Config) {
		c.Eviction = cfg
	}
}

// WithSharedTier sets the shared tier backend.
func WithSharedTier(backend cache.Backend) Option {
	return func(c *Config) {
		c.Shared = backend
	}
}

// WithDurableTier sets the durable tier backend.
func WithDurableTier(backend cache.Backend) Option {
	return func(c *Config) {
		c.Durable = backend
	}
}

// WithSimilarityThreshold sets the minimum cosine similarity for a
// semantic hit.
func WithSimilarityThreshold(threshold float64) Option {
	return func(c *Config) {
		c.SimilarityThreshold = threshold
	}
}

// WithoutPrefixMatching disables the token prefix lookup stage.
func WithoutPrefixMatching() Option {
	return func(c *Config) {
		c.PrefixMatching = false
	}
}

// WithoutSimilaritySearch disables the semantic lookup stage.
func WithoutSimilaritySearch() Option {
	return func(c *Config) {
		c.SimilaritySearch = false
	}
}

// WithSearchK sets how many candidates the semantic stage considers.
func WithSearchK(k int) Option {
	return func(c *Config) {
		c.SearchK = k
	}
}

// WithChunkSize sets the rune budget per document chunk.
func WithChunkSize(runes int) Option {
	return func(c *Config) {
		c.ChunkSize = runes
	}
}

// WithMetrics sets the telemetry provider.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}
