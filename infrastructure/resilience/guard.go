// Package resilience wraps a cache tier with fortify protection patterns.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// outcome carries a read result through the generic protection stack.
type outcome struct {
	entry *cache.Entry
	found bool
}

// Backend decorates a cache tier with bulkhead, timeout, circuit breaker
// and retry. It is meant for network-backed tiers where the remote end
// can stall or go away.
type Backend struct {
	inner    cache.Backend
	bulkhead bulkhead.Bulkhead[outcome]
	breaker  circuitbreaker.CircuitBreaker[outcome]
	retry    retry.Retry[outcome]
	timeout  time.Duration
}

// Config configures the protection stack around a tier.
type Config struct {
	// MaxConcurrent limits in-flight operations against the tier.
	MaxConcurrent int

	// BreakerThreshold is the number of consecutive failures before opening.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts per operation.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between attempts.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// OpTimeout bounds each operation against the tier.
	OpTimeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:          32,
		BreakerThreshold:       5,
		BreakerTimeout:         30 * time.Second,
		RetryMaxAttempts:       3,
		RetryInitialDelay:      50 * time.Millisecond,
		RetryBackoffMultiplier: 2.0,
		OpTimeout:              2 * time.Second,
	}
}

// NewBackend wraps a tier with the protection stack.
func NewBackend(inner cache.Backend, config Config) *Backend {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 32
	}
	threshold := config.BreakerThreshold
	if threshold < 1 {
		threshold = 5
	}

	return &Backend{
		inner: inner,
		bulkhead: bulkhead.New[outcome](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[outcome](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.BreakerTimeout,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[outcome](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		timeout: config.OpTimeout,
	}
}

// execute runs an operation through the protection stack.
// Composition order: Bulkhead, Timeout, Circuit Breaker, Retry.
func (b *Backend) execute(ctx context.Context, op func(context.Context) (outcome, error)) (outcome, error) {
	return b.bulkhead.Execute(ctx, func(ctx context.Context) (outcome, error) {
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}

		return b.breaker.Execute(ctx, func(ctx context.Context) (outcome, error) {
			return b.retry.Do(ctx, op)
		})
	})
}

// Get retrieves an entry from the protected tier.
func (b *Backend) Get(ctx context.Context, key cache.Key) (*cache.Entry, bool, error) {
	out, err := b.execute(ctx, func(ctx context.Context) (outcome, error) {
		entry, found, err := b.inner.Get(ctx, key)
		return outcome{entry: entry, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	return out.entry, out.found, nil
}

// Set stores an entry in the protected tier. Cache writes are idempotent
// so retrying a failed attempt is safe.
func (b *Backend) Set(ctx context.Context, entry *cache.Entry) error {
	_, err := b.execute(ctx, func(ctx context.Context) (outcome, error) {
		return outcome{}, b.inner.Set(ctx, entry)
	})
	return err
}

// Delete removes an entry from the protected tier.
func (b *Backend) Delete(ctx context.Context, key cache.Key) error {
	_, err := b.execute(ctx, func(ctx context.Context) (outcome, error) {
		return outcome{}, b.inner.Delete(ctx, key)
	})
	return err
}

// Exists checks for a key in the protected tier.
func (b *Backend) Exists(ctx context.Context, key cache.Key) (bool, error) {
	out, err := b.execute(ctx, func(ctx context.Context) (outcome, error) {
		found, err := b.inner.Exists(ctx, key)
		return outcome{found: found}, err
	})
	if err != nil {
		return false, err
	}
	return out.found, nil
}

// Clear wipes the protected tier.
func (b *Backend) Clear(ctx context.Context) error {
	_, err := b.execute(ctx, func(ctx context.Context) (outcome, error) {
		return outcome{}, b.inner.Clear(ctx)
	})
	return err
}

// BreakerState returns the current circuit breaker state.
func (b *Backend) BreakerState() circuitbreaker.State {
	return b.breaker.State()
}

// Inner returns the wrapped tier.
func (b *Backend) Inner() cache.Backend {
	return b.inner
}

// Close closes the wrapped tier when it is closable. The protection
// stack itself holds no resources.
func (b *Backend) Close() error {
	if closer, ok := b.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

var _ cache.Backend = (*Backend)(nil)
