package config

import (
	"time"

	domainconfig "github.com/felixgeelhaar/modelcache/domain/config"
	"github.com/felixgeelhaar/modelcache/infrastructure/eviction"
	"github.com/felixgeelhaar/modelcache/infrastructure/logging"
	"github.com/felixgeelhaar/modelcache/infrastructure/resilience"
	badgerstore "github.com/felixgeelhaar/modelcache/infrastructure/storage/badger"
	redisstore "github.com/felixgeelhaar/modelcache/infrastructure/storage/redis"
)

// Builder builds cache component configurations from a loaded config.
type Builder struct {
	config *domainconfig.CacheConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.CacheConfig) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the built component configurations.
type BuildResult struct {
	// FastBudgetBytes is the byte budget of the in-memory tier.
	FastBudgetBytes int64
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
	// Shared is the Redis tier configuration (nil when disabled).
	Shared *redisstore.Config
	// Durable is the BadgerDB tier configuration (nil when disabled).
	Durable *badgerstore.Config
	// Eviction is the eviction policy configuration.
	Eviction eviction.Config
	// Resilience is the protection stack configuration for network tiers.
	Resilience resilience.Config
	// SimilarityThreshold is the minimum cosine similarity for a semantic hit.
	SimilarityThreshold float64
	// PrefixMatching enables the token prefix lookup stage.
	PrefixMatching bool
	// SimilaritySearch enables the semantic lookup stage.
	SimilaritySearch bool
	// Logging is the logging configuration.
	Logging logging.Config
	// TelemetryEnabled enables OpenTelemetry metrics.
	TelemetryEnabled bool
	// MeterName overrides the default meter name (empty for default).
	MeterName string
}

// Build builds the component configurations from the loaded config.
func (b *Builder) Build() (*BuildResult, error) {
	result := &BuildResult{}

	b.buildTiers(result)
	b.buildEviction(result)
	b.buildResilience(result)
	b.buildLookup(result)
	b.buildObservability(result)

	return result, nil
}

func (b *Builder) buildTiers(result *BuildResult) {
	result.FastBudgetBytes = b.config.Tiers.Fast.BudgetBytes
	result.CleanupInterval = b.config.Tiers.Fast.CleanupInterval.Duration()
	if result.CleanupInterval <= 0 {
		result.CleanupInterval = time.Minute
	}

	if shared := b.config.Tiers.Shared; shared.Enabled {
		cfg := redisstore.DefaultConfig()
		cfg.Address = shared.Address
		cfg.Password = shared.Password
		cfg.DB = shared.DB
		if shared.KeyPrefix != "" {
			cfg.KeyPrefix = shared.KeyPrefix
		}
		if shared.PoolSize > 0 {
			cfg.PoolSize = shared.PoolSize
		}
		if d := shared.DialTimeout.Duration(); d > 0 {
			cfg.DialTimeout = d
		}
		result.Shared = &cfg
	}

	if durable := b.config.Tiers.Durable; durable.Enabled {
		cfg := badgerstore.DefaultConfig()
		cfg.Dir = durable.Dir
		cfg.SyncWrites = durable.SyncWrites
		if d := durable.GCInterval.Duration(); d > 0 {
			cfg.GCInterval = d
		}
		result.Durable = &cfg
	}
}

func (b *Builder) buildEviction(result *BuildResult) {
	ev := b.config.Eviction
	cfg := eviction.Config{
		RecencyWeight:   ev.RecencyWeight,
		FrequencyWeight: ev.FrequencyWeight,
		BaseTTL:         ev.BaseTTL.Duration(),
		MinTTL:          ev.MinTTL.Duration(),
		MaxTTL:          ev.MaxTTL.Duration(),
	}
	result.Eviction = cfg
}

func (b *Builder) buildResilience(result *BuildResult) {
	cfg := resilience.DefaultConfig()
	res := b.config.Resilience

	if d := res.Timeout.Duration(); d > 0 {
		cfg.OpTimeout = d
	}

	// A disabled retry collapses to a single attempt.
	if res.Retry.Enabled {
		cfg.RetryMaxAttempts = res.Retry.MaxAttempts
		if d := res.Retry.InitialDelay.Duration(); d > 0 {
			cfg.RetryInitialDelay = d
		}
		if res.Retry.Multiplier >= 1 {
			cfg.RetryBackoffMultiplier = res.Retry.Multiplier
		}
	} else {
		cfg.RetryMaxAttempts = 1
	}

	// A disabled breaker uses a threshold no workload will reach.
	if res.CircuitBreaker.Enabled {
		cfg.BreakerThreshold = res.CircuitBreaker.Threshold
		if d := res.CircuitBreaker.Timeout.Duration(); d > 0 {
			cfg.BreakerTimeout = d
		}
	} else {
		cfg.BreakerThreshold = 1 << 30
	}

	if res.Bulkhead.Enabled {
		cfg.MaxConcurrent = res.Bulkhead.MaxConcurrent
	}

	result.Resilience = cfg
}

func (b *Builder) buildLookup(result *BuildResult) {
	lookup := b.config.Lookup

	result.SimilarityThreshold = lookup.SimilarityThreshold
	if result.SimilarityThreshold <= 0 {
		result.SimilarityThreshold = 0.85
	}

	result.PrefixMatching = true
	if lookup.PrefixMatching != nil {
		result.PrefixMatching = *lookup.PrefixMatching
	}
	result.SimilaritySearch = true
	if lookup.SimilaritySearch != nil {
		result.SimilaritySearch = *lookup.SimilaritySearch
	}
}

func (b *Builder) buildObservability(result *BuildResult) {
	cfg := logging.DefaultConfig()
	if b.config.Logging.Level != "" {
		cfg.Level = b.config.Logging.Level
	}
	if b.config.Logging.Format != "" {
		cfg.Format = b.config.Logging.Format
	}
	result.Logging = cfg

	result.TelemetryEnabled = b.config.Telemetry.Enabled
	result.MeterName = b.config.Telemetry.MeterName
}

// DefaultConfig returns a minimal default configuration.
func DefaultConfig() *domainconfig.CacheConfig {
	return &domainconfig.CacheConfig{
		Name:    "modelcache",
		Version: "1.0",
		Lookup: domainconfig.LookupConfig{
			SimilarityThreshold: 0.85,
		},
		Tiers: domainconfig.TiersConfig{
			Fast: domainconfig.FastTierConfig{
				BudgetBytes:     256 << 20,
				CleanupInterval: domainconfig.Duration(time.Minute),
			},
		},
		Eviction: domainconfig.EvictionConfig{
			RecencyWeight:   0.6,
			FrequencyWeight: 0.4,
			BaseTTL:         domainconfig.Duration(10 * time.Minute),
			MinTTL:          domainconfig.Duration(time.Minute),
			MaxTTL:          domainconfig.Duration(24 * time.Hour),
		},
		Resilience: domainconfig.ResilienceConfig{
			Timeout: domainconfig.Duration(2 * time.Second),
			Retry: domainconfig.RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: domainconfig.Duration(50 * time.Millisecond),
				Multiplier:   2.0,
			},
			CircuitBreaker: domainconfig.CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   domainconfig.Duration(30 * time.Second),
			},
			Bulkhead: domainconfig.BulkheadConfig{
				Enabled:       true,
				MaxConcurrent: 32,
			},
		},
	}
}
