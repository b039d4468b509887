// Package config provides domain models for cache configuration.
package config

import "time"

// CacheConfig represents the complete cache configuration.
type CacheConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the deployment.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Lookup contains lookup pipeline settings.
	Lookup LookupConfig `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	// Tiers contains per-tier settings.
	Tiers TiersConfig `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	// Eviction contains eviction and TTL policy settings.
	Eviction EvictionConfig `json:"eviction,omitempty" yaml:"eviction,omitempty"`
	// Resilience contains resilience settings for network tiers.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Logging contains logging settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Telemetry contains metrics settings.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// LookupConfig contains lookup pipeline settings.
type LookupConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// semantic hit (default 0.85).
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" yaml:"similarity_threshold,omitempty"`
	// PrefixMatching enables the token prefix stage.
	PrefixMatching *bool `json:"prefix_matching,omitempty" yaml:"prefix_matching,omitempty"`
	// SimilaritySearch enables the semantic stage.
	SimilaritySearch *bool `json:"similarity_search,omitempty" yaml:"similarity_search,omitempty"`
}

// TiersConfig contains per-tier settings.
type TiersConfig struct {
	// Fast configures the in-memory tier.
	Fast FastTierConfig `json:"fast,omitempty" yaml:"fast,omitempty"`
	// Shared configures the Redis tier.
	Shared SharedTierConfig `json:"shared,omitempty" yaml:"shared,omitempty"`
	// Durable configures the BadgerDB tier.
	Durable DurableTierConfig `json:"durable,omitempty" yaml:"durable,omitempty"`
}

// FastTierConfig configures the in-memory tier.
type FastTierConfig struct {
	// BudgetBytes is the byte budget of the fast tier.
	BudgetBytes int64 `json:"budget_bytes,omitempty" yaml:"budget_bytes,omitempty"`
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval Duration `json:"cleanup_interval,omitempty" yaml:"cleanup_interval,omitempty"`
}

// SharedTierConfig configures the Redis tier.
type SharedTierConfig struct {
	// Enabled enables the shared tier.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Address is the Redis server address (host:port).
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password for authentication (optional).
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB selects the Redis database index.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// KeyPrefix namespaces all keys.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// PoolSize is the maximum number of socket connections.
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	// DialTimeout is the timeout for establishing new connections.
	DialTimeout Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
}

// DurableTierConfig configures the BadgerDB tier.
type DurableTierConfig struct {
	// Enabled enables the durable tier.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Dir is the directory to store data in.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
	// GCInterval is the interval between value log GC runs.
	GCInterval Duration `json:"gc_interval,omitempty" yaml:"gc_interval,omitempty"`
}

// EvictionConfig contains eviction and TTL policy settings.
type EvictionConfig struct {
	// RecencyWeight weighs recency in the hybrid score.
	RecencyWeight float64 `json:"recency_weight,omitempty" yaml:"recency_weight,omitempty"`
	// FrequencyWeight weighs access frequency in the hybrid score.
	FrequencyWeight float64 `json:"frequency_weight,omitempty" yaml:"frequency_weight,omitempty"`
	// BaseTTL is the TTL for the lowest priority.
	BaseTTL Duration `json:"base_ttl,omitempty" yaml:"base_ttl,omitempty"`
	// MinTTL clamps predicted TTLs from below.
	MinTTL Duration `json:"min_ttl,omitempty" yaml:"min_ttl,omitempty"`
	// MaxTTL clamps predicted TTLs from above.
	MaxTTL Duration `json:"max_ttl,omitempty" yaml:"max_ttl,omitempty"`
}

// ResilienceConfig contains resilience settings for network tiers.
type ResilienceConfig struct {
	// Timeout is the per-operation timeout against a network tier.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// MaxDelay is the maximum delay between retries.
	MaxDelay Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// Enabled enables bulkhead.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxConcurrent is the maximum concurrent operations.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json or console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	// Enabled enables OpenTelemetry metrics.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MeterName overrides the default meter name.
	MeterName string `json:"meter_name,omitempty" yaml:"meter_name,omitempty"`
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	// Parse duration
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
