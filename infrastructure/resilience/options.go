package resilience

import (
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Option configures the protection stack.
type Option func(*Config)

// WithMaxConcurrent sets the maximum in-flight operations.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) {
		c.MaxConcurrent = n
	}
}

// WithBreakerThreshold sets the failure threshold for the circuit breaker.
func WithBreakerThreshold(n int) Option {
	return func(c *Config) {
		c.BreakerThreshold = n
	}
}

// WithBreakerTimeout sets the circuit breaker open duration.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BreakerTimeout = d
	}
}

// WithRetryAttempts sets the maximum retry attempts.
func WithRetryAttempts(n int) Option {
	return func(c *Config) {
		c.RetryMaxAttempts = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryInitialDelay = d
	}
}

// WithOpTimeout sets the per-operation timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.OpTimeout = d
	}
}

// NewBackendWithOptions wraps a tier using the given options.
func NewBackendWithOptions(inner cache.Backend, opts ...Option) *Backend {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewBackend(inner, config)
}
