package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates cache configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *CacheConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateLookup(config)
	v.validateTiers(config)
	v.validateEviction(config)
	v.validateResilience(config)
	v.validateLogging(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *CacheConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateLookup(config *CacheConfig) {
	if t := config.Lookup.SimilarityThreshold; t != 0 && (t <= 0 || t > 1) {
		v.addError("lookup.similarity_threshold", "similarity_threshold must be in (0, 1]")
	}
}

func (v *Validator) validateTiers(config *CacheConfig) {
	if config.Tiers.Fast.BudgetBytes < 0 {
		v.addError("tiers.fast.budget_bytes", "budget_bytes must be non-negative")
	}
	if config.Tiers.Fast.CleanupInterval < 0 {
		v.addError("tiers.fast.cleanup_interval", "cleanup_interval must be non-negative")
	}

	if config.Tiers.Shared.Enabled {
		if config.Tiers.Shared.Address == "" {
			v.addError("tiers.shared.address", "address is required when enabled")
		}
		if config.Tiers.Shared.DB < 0 {
			v.addError("tiers.shared.db", "db must be non-negative")
		}
		if config.Tiers.Shared.PoolSize < 0 {
			v.addError("tiers.shared.pool_size", "pool_size must be non-negative")
		}
	}

	if config.Tiers.Durable.Enabled {
		if config.Tiers.Durable.Dir == "" {
			v.addError("tiers.durable.dir", "dir is required when enabled")
		}
		if config.Tiers.Durable.GCInterval < 0 {
			v.addError("tiers.durable.gc_interval", "gc_interval must be non-negative")
		}
	}
}

func (v *Validator) validateEviction(config *CacheConfig) {
	ev := config.Eviction

	if ev.RecencyWeight < 0 || ev.RecencyWeight > 1 {
		v.addError("eviction.recency_weight", "recency_weight must be in [0, 1]")
	}
	if ev.FrequencyWeight < 0 || ev.FrequencyWeight > 1 {
		v.addError("eviction.frequency_weight", "frequency_weight must be in [0, 1]")
	}
	if ev.RecencyWeight != 0 || ev.FrequencyWeight != 0 {
		if sum := ev.RecencyWeight + ev.FrequencyWeight; sum < 0.999 || sum > 1.001 {
			v.addError("eviction", "recency_weight and frequency_weight must sum to 1")
		}
	}

	if ev.BaseTTL < 0 {
		v.addError("eviction.base_ttl", "base_ttl must be non-negative")
	}
	if ev.MinTTL < 0 {
		v.addError("eviction.min_ttl", "min_ttl must be non-negative")
	}
	if ev.MaxTTL < 0 {
		v.addError("eviction.max_ttl", "max_ttl must be non-negative")
	}
	if ev.MinTTL > 0 && ev.BaseTTL > 0 && ev.MinTTL > ev.BaseTTL {
		v.addError("eviction.min_ttl", "min_ttl must not exceed base_ttl")
	}
	if ev.MaxTTL > 0 && ev.BaseTTL > 0 && ev.MaxTTL < ev.BaseTTL {
		v.addError("eviction.max_ttl", "max_ttl must not be below base_ttl")
	}
}

func (v *Validator) validateResilience(config *CacheConfig) {
	// Validate retry
	if config.Resilience.Retry.Enabled {
		if config.Resilience.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if config.Resilience.Retry.Multiplier != 0 && config.Resilience.Retry.Multiplier < 1 {
			v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
		}
	}

	// Validate circuit breaker
	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}

	// Validate bulkhead
	if config.Resilience.Bulkhead.Enabled {
		if config.Resilience.Bulkhead.MaxConcurrent <= 0 {
			v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be positive when enabled")
		}
	}
}

func (v *Validator) validateLogging(config *CacheConfig) {
	if config.Logging.Level != "" {
		validLevels := map[string]bool{
			"trace": true, "debug": true, "info": true,
			"warn": true, "error": true, "fatal": true,
		}
		if !validLevels[strings.ToLower(config.Logging.Level)] {
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
		}
	}
	if config.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "console": true}
		if !validFormats[strings.ToLower(config.Logging.Format)] {
			v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
		}
	}
}
