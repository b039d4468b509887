// Package tiered composes the fast, shared and durable tiers into a
// single backend with promotion, demotion and write replication.
package tiered

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/logging"
)

// Store routes reads through the tiers in latency order and replicates
// writes downward in the background. The fast tier is required; shared
// and durable tiers are optional.
type Store struct {
	fast    cache.Backend
	shared  cache.Backend
	durable cache.Backend

	promote         bool
	promoteBudget   int64
	promoteInterval time.Duration
	replTimeout     time.Duration

	promoteMu   sync.Mutex
	promoteUsed int64
	windowStart time.Time

	repl   chan *cache.Entry
	replMu sync.RWMutex
	wg     sync.WaitGroup
	closed atomic.Bool

	promotions   atomic.Int64
	demotions    atomic.Int64
	replFailures atomic.Int64
}

// Option configures the tiered store.
type Option func(*Store)

// WithShared attaches the shared tier.
func WithShared(backend cache.Backend) Option {
	return func(s *Store) {
		s.shared = backend
	}
}

// WithDurable attaches the durable tier.
func WithDurable(backend cache.Backend) Option {
	return func(s *Store) {
		s.durable = backend
	}
}

// WithoutPromotion disables automatic promotion on lower-tier hits.
func WithoutPromotion() Option {
	return func(s *Store) {
		s.promote = false
	}
}

// WithPromotionBudget caps automatic promotions at n per interval, so a
// burst of cold reads cannot thrash the fast tier. Zero n removes the
// cap. Explicit Promote calls are not budgeted.
func WithPromotionBudget(n int64, per time.Duration) Option {
	return func(s *Store) {
		s.promoteBudget = n
		if per > 0 {
			s.promoteInterval = per
		}
	}
}

// WithReplicationBuffer sets the replication queue depth.
func WithReplicationBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.repl = make(chan *cache.Entry, n)
		}
	}
}

// WithReplicationTimeout bounds each background replication write.
func WithReplicationTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.replTimeout = d
	}
}

// NewStore creates a tiered store on top of the fast tier.
func NewStore(fast cache.Backend, opts ...Option) *Store {
	s := &Store{
		fast:            fast,
		promote:         true,
		promoteBudget:   1024,
		promoteInterval: time.Minute,
		replTimeout:     5 * time.Second,
		repl:            make(chan *cache.Entry, 256),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.replicate()

	return s
}

// replicate drains the write queue into the lower tiers.
func (s *Store) replicate() {
	defer s.wg.Done()

	for entry := range s.repl {
		ctx, cancel := context.WithTimeout(context.Background(), s.replTimeout)

		if s.shared != nil {
			if err := s.shared.Set(ctx, entry); err != nil {
				s.replFailures.Add(1)
				logging.Warn().
					Add(logging.Component("tiered")).
					Add(logging.CacheKey(entry.Key)).
					Add(logging.ToTier(cache.TierShared)).
					Add(logging.ErrorField(err)).
					Msg("replication failed")
			}
		}
		if s.durable != nil {
			if err := s.durable.Set(ctx, entry); err != nil {
				s.replFailures.Add(1)
				logging.Warn().
					Add(logging.Component("tiered")).
					Add(logging.CacheKey(entry.Key)).
					Add(logging.ToTier(cache.TierDurable)).
					Add(logging.ErrorField(err)).
					Msg("replication failed")
			}
		}

		cancel()
	}
}

// Get reads through the tiers in order, stopping at the first hit. A
// failing lower tier degrades to the next one instead of failing the
// lookup. Hits below the fast tier are promoted back into it.
func (s *Store) Get(ctx context.Context, key cache.Key) (*cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.closed.Load() {
		return nil, false, cache.ErrClosed
	}

	entry, found, err := s.fast.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return entry, true, nil
	}

	for _, tier := range []struct {
		backend cache.Backend
		name    cache.Tier
	}{
		{s.shared, cache.TierShared},
		{s.durable, cache.TierDurable},
	} {
		if tier.backend == nil {
			continue
		}

		entry, found, err = tier.backend.Get(ctx, key)
		if err != nil {
			// Only the caller's own cancellation aborts the lookup. A
			// tier-local timeout (redis deadline, resilience OpTimeout)
			// counts as absent in that tier and the chain continues.
			if ctx.Err() != nil {
				return nil, false, err
			}
			logging.Warn().
				Add(logging.Component("tiered")).
				Add(logging.CacheKey(key)).
				Add(logging.Tier(tier.name)).
				Add(logging.ErrorField(err)).
				Msg("tier lookup degraded")
			continue
		}
		if found {
			if s.promote {
				s.promoteToFast(ctx, entry, tier.name)
			}
			return entry, true, nil
		}
	}

	return nil, false, nil
}

// promoteAllowed consumes one unit of the promotion budget for the
// current interval window.
func (s *Store) promoteAllowed(now time.Time) bool {
	if s.promoteBudget <= 0 {
		return true
	}

	s.promoteMu.Lock()
	defer s.promoteMu.Unlock()

	if now.Sub(s.windowStart) >= s.promoteInterval {
		s.windowStart = now
		s.promoteUsed = 0
	}
	if s.promoteUsed >= s.promoteBudget {
		return false
	}
	s.promoteUsed++
	return true
}

// promoteToFast copies a lower-tier hit into the fast tier, subject to
// the promotion budget.
func (s *Store) promoteToFast(ctx context.Context, entry *cache.Entry, from cache.Tier) {
	if !s.promoteAllowed(time.Now()) {
		logging.Debug().
			Add(logging.Component("tiered")).
			Add(logging.CacheKey(entry.Key)).
			Add(logging.FromTier(from)).
			Msg("promotion budget exhausted")
		return
	}

	promoted := entry.Clone()
	if err := s.fast.Set(ctx, promoted); err != nil {
		logging.Debug().
			Add(logging.Component("tiered")).
			Add(logging.CacheKey(entry.Key)).
			Add(logging.FromTier(from)).
			Add(logging.ErrorField(err)).
			Msg("promotion skipped")
		return
	}
	s.promotions.Add(1)
}

// Set writes to the fast tier synchronously and queues replication to
// the lower tiers. A full replication queue falls back to synchronous
// writes so no entry is silently dropped.
func (s *Store) Set(ctx context.Context, entry *cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return cache.ErrClosed
	}
	if entry == nil || entry.Key == "" {
		return cache.ErrInvalidKey
	}

	if err := s.fast.Set(ctx, entry); err != nil {
		return err
	}

	if s.shared == nil && s.durable == nil {
		return nil
	}

	queued := entry.Clone()

	// The read lock pairs with the write lock in Close so the queue is
	// never closed between the closed check and the send.
	s.replMu.RLock()
	if s.closed.Load() {
		s.replMu.RUnlock()
		return cache.ErrClosed
	}
	select {
	case s.repl <- queued:
		s.replMu.RUnlock()
		return nil
	default:
		s.replMu.RUnlock()
	}

	if s.shared != nil {
		if err := s.shared.Set(ctx, queued); err != nil {
			s.replFailures.Add(1)
		}
	}
	if s.durable != nil {
		if err := s.durable.Set(ctx, queued); err != nil {
			s.replFailures.Add(1)
		}
	}

	return nil
}

// Delete removes the key from every tier. A miss in any tier is not an
// error.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return cache.ErrClosed
	}

	var errs []error
	if err := s.fast.Delete(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if s.shared != nil {
		if err := s.shared.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if s.durable != nil {
		if err := s.durable.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Exists reports whether any tier holds the key.
func (s *Store) Exists(ctx context.Context, key cache.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.closed.Load() {
		return false, cache.ErrClosed
	}

	for _, backend := range []cache.Backend{s.fast, s.shared, s.durable} {
		if backend == nil {
			continue
		}
		found, err := backend.Exists(ctx, key)
		if err != nil {
			continue
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// Clear wipes every tier.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return cache.ErrClosed
	}

	var errs []error
	if err := s.fast.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.shared != nil {
		if err := s.shared.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.durable != nil {
		if err := s.durable.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// backendFor maps a tier name to its backend.
func (s *Store) backendFor(tier cache.Tier) cache.Backend {
	switch tier {
	case cache.TierFast:
		return s.fast
	case cache.TierShared:
		return s.shared
	case cache.TierDurable:
		return s.durable
	default:
		return nil
	}
}

// Promote copies an entry from a lower tier into the target tier.
func (s *Store) Promote(ctx context.Context, key cache.Key, to cache.Tier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return cache.ErrClosed
	}

	target := s.backendFor(to)
	if target == nil {
		return cache.ErrTierUnavailable
	}

	entry, found, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if err := target.Set(ctx, entry); err != nil {
		return err
	}
	s.promotions.Add(1)
	return nil
}

// Demote moves an entry out of the fast tier into the target tier.
func (s *Store) Demote(ctx context.Context, key cache.Key, to cache.Tier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return cache.ErrClosed
	}

	target := s.backendFor(to)
	if target == nil || to == cache.TierFast {
		return cache.ErrTierUnavailable
	}

	entry, found, err := s.fast.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if err := target.Set(ctx, entry); err != nil {
		return err
	}
	if err := s.fast.Delete(ctx, key); err != nil {
		return err
	}
	s.demotions.Add(1)
	return nil
}

// Counters returns promotion, demotion and replication failure counts.
func (s *Store) Counters() (promotions, demotions, replFailures int64) {
	return s.promotions.Load(), s.demotions.Load(), s.replFailures.Load()
}

// TierStats returns per-tier hit and miss counters where available.
func (s *Store) TierStats() map[cache.Tier]cache.Stats {
	stats := make(map[cache.Tier]cache.Stats)
	for tier, backend := range map[cache.Tier]cache.Backend{
		cache.TierFast:    s.fast,
		cache.TierShared:  s.shared,
		cache.TierDurable: s.durable,
	} {
		if provider, ok := backend.(cache.StatsProvider); ok {
			stats[tier] = provider.Stats()
		}
	}
	return stats
}

// Close drains the replication queue and closes any closable tier.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.replMu.Lock()
	close(s.repl)
	s.replMu.Unlock()
	s.wg.Wait()

	var errs []error
	for _, backend := range []cache.Backend{s.shared, s.durable} {
		if closer, ok := backend.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var _ cache.Backend = (*Store)(nil)
