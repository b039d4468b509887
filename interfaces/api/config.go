// Package api provides the public API for the modelcache library.
// This file provides configuration-related exports.
package api

import (
	domainconfig "github.com/felixgeelhaar/modelcache/domain/config"
	infraconfig "github.com/felixgeelhaar/modelcache/infrastructure/config"
)

// Re-export domain configuration types.
type (
	// CacheConfig represents the complete cache configuration.
	CacheConfig = domainconfig.CacheConfig
	// LookupConfig tunes the lookup pipeline.
	LookupConfig = domainconfig.LookupConfig
	// TiersConfig configures the storage tiers.
	TiersConfig = domainconfig.TiersConfig
	// FastTierConfig configures the in-memory tier.
	FastTierConfig = domainconfig.FastTierConfig
	// SharedTierConfig configures the Redis tier.
	SharedTierConfig = domainconfig.SharedTierConfig
	// DurableTierConfig configures the BadgerDB tier.
	DurableTierConfig = domainconfig.DurableTierConfig
	// EvictionConfigSpec tunes eviction scoring and TTL prediction.
	EvictionConfigSpec = domainconfig.EvictionConfig
	// ResilienceConfig contains resilience settings for network tiers.
	ResilienceConfig = domainconfig.ResilienceConfig
	// RetryConfigSpec configures retry behavior.
	RetryConfigSpec = domainconfig.RetryConfig
	// CircuitBreakerConfigSpec configures circuit breaker behavior.
	CircuitBreakerConfigSpec = domainconfig.CircuitBreakerConfig
	// BulkheadConfigSpec configures bulkhead behavior.
	BulkheadConfigSpec = domainconfig.BulkheadConfig
	// LoggingConfigSpec contains logging settings.
	LoggingConfigSpec = domainconfig.LoggingConfig
	// TelemetryConfigSpec contains telemetry settings.
	TelemetryConfigSpec = domainconfig.TelemetryConfig
	// ConfigDuration is a time.Duration that supports JSON/YAML string representation.
	ConfigDuration = domainconfig.Duration

	// ValidationError represents a configuration validation error.
	ValidationError = domainconfig.ValidationError
	// ValidationErrors is a collection of validation errors.
	ValidationErrors = domainconfig.ValidationErrors
)

// Re-export infrastructure configuration types.
type (
	// ConfigLoader loads cache configuration from files.
	ConfigLoader = infraconfig.Loader
	// ConfigBuilder builds component configurations from a cache config.
	ConfigBuilder = infraconfig.Builder
	// ConfigBuildResult contains the built component configurations.
	ConfigBuildResult = infraconfig.BuildResult
	// ConfigLoaderOption configures the loader.
	ConfigLoaderOption = infraconfig.LoaderOption
	// JSONSchema represents a JSON Schema document.
	JSONSchema = infraconfig.JSONSchema
	// ConfigWatcher reloads the configuration when its file changes.
	ConfigWatcher = infraconfig.Watcher
	// ConfigReloadCallback observes configuration reloads.
	ConfigReloadCallback = infraconfig.ReloadCallback
)

// Configuration format constants.
const (
	// ConfigFormatYAML is the YAML format.
	ConfigFormatYAML = infraconfig.FormatYAML
	// ConfigFormatJSON is the JSON format.
	ConfigFormatJSON = infraconfig.FormatJSON
)

// Configuration errors.
var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = domainconfig.ErrConfigNotFound
	// ErrInvalidFormat indicates the configuration format is invalid.
	ErrInvalidFormat = domainconfig.ErrInvalidFormat
	// ErrUnsupportedFormat indicates the file format is not supported.
	ErrUnsupportedFormat = domainconfig.ErrUnsupportedFormat
	// ErrValidationFailed indicates configuration validation failed.
	ErrValidationFailed = domainconfig.ErrValidationFailed
	// ErrEnvExpansionFailed indicates environment variable expansion failed.
	ErrEnvExpansionFailed = domainconfig.ErrEnvExpansionFailed
	// ErrMissingEnvVar indicates a required environment variable is not set.
	ErrMissingEnvVar = domainconfig.ErrMissingEnvVar
	// ErrBuildFailed indicates cache building from config failed.
	ErrBuildFailed = domainconfig.ErrBuildFailed
	// ErrWatchFailed indicates the configuration file could not be watched.
	ErrWatchFailed = domainconfig.ErrWatchFailed
)

// NewConfigLoader creates a new configuration loader with default settings.
func NewConfigLoader() *ConfigLoader {
	return infraconfig.NewLoader()
}

// NewConfigLoaderWithOptions creates a loader with the specified options.
func NewConfigLoaderWithOptions(opts ...ConfigLoaderOption) *ConfigLoader {
	return infraconfig.NewLoaderWithOptions(opts...)
}

// ConfigWithEnvExpansion enables or disables environment variable expansion.
func ConfigWithEnvExpansion(enabled bool) ConfigLoaderOption {
	return infraconfig.WithEnvExpansion(enabled)
}

// ConfigWithStrictEnv enables strict environment variable checking.
func ConfigWithStrictEnv(enabled bool) ConfigLoaderOption {
	return infraconfig.WithStrictEnv(enabled)
}

// ConfigWithValidation enables or disables configuration validation.
func ConfigWithValidation(enabled bool) ConfigLoaderOption {
	return infraconfig.WithValidation(enabled)
}

// NewConfigBuilder creates a new configuration builder.
func NewConfigBuilder(config *CacheConfig) *ConfigBuilder {
	return infraconfig.NewBuilder(config)
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *domainconfig.Validator {
	return domainconfig.NewValidator()
}

// DefaultCacheConfig returns a minimal default configuration.
func DefaultCacheConfig() *CacheConfig {
	return infraconfig.DefaultConfig()
}

// NewConfigWatcher watches a configuration file and reloads it on change.
func NewConfigWatcher(path string, opts ...infraconfig.WatcherOption) (*ConfigWatcher, error) {
	return infraconfig.NewWatcher(path, opts...)
}

// GenerateConfigSchema generates a JSON Schema for the CacheConfig.
func GenerateConfigSchema() *JSONSchema {
	return infraconfig.GenerateSchema()
}

// ConfigSchemaJSON returns the configuration JSON Schema as a JSON string.
func ConfigSchemaJSON() (string, error) {
	return infraconfig.SchemaJSON()
}

// ExpandEnv expands environment variables in a string.
// Supported patterns: ${VAR}, ${VAR:-default}, ${VAR:?error}
func ExpandEnv(input string) string {
	return infraconfig.ExpandEnv(input)
}

// ExpandEnvStrict expands environment variables and returns an error for missing vars.
func ExpandEnvStrict(input string) (string, error) {
	return infraconfig.ExpandEnvStrict(input)
}
