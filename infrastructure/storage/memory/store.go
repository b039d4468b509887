// Package memory provides the fast tier: a bounded in-memory store
// with policy-driven eviction, offering read-your-writes consistency
// within the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/eviction"
)

// DefaultBudgetBytes bounds the fast tier when not configured.
const DefaultBudgetBytes = 256 << 20 // 256MB

// RemovalReason tells the eviction hook why the store dropped an entry.
type RemovalReason int

const (
	// ReasonEvicted marks removal by the eviction policy on budget overflow.
	ReasonEvicted RemovalReason = iota
	// ReasonExpired marks removal because the entry's TTL elapsed, whether
	// found by a sweep or by a read.
	ReasonExpired
)

// Store is the in-memory fast tier. Eviction runs synchronously on
// overflow, blocking the triggering write until space is freed.
type Store struct {
	entries     map[cache.Key]*cache.Entry
	budgetBytes int64
	usedBytes   int64
	policy      *eviction.Policy
	evictHook   func(cache.Key, RemovalReason)
	mu          sync.RWMutex
	hits        int64
	misses      int64
}

// Option configures the store.
type Option func(*Store)

// WithBudgetBytes sets the byte budget for the tier.
func WithBudgetBytes(budget int64) Option {
	return func(s *Store) {
		s.budgetBytes = budget
	}
}

// WithPolicy sets the eviction policy.
func WithPolicy(p *eviction.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithEvictionHook registers a callback invoked (outside the store
// lock) for every evicted or expired key, so owners can cascade
// removal into their indices.
func WithEvictionHook(hook func(cache.Key, RemovalReason)) Option {
	return func(s *Store) {
		s.evictHook = hook
	}
}

// NewStore creates a fast-tier store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:     make(map[cache.Key]*cache.Entry),
		budgetBytes: DefaultBudgetBytes,
		policy:      eviction.NewPolicy(eviction.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves an entry. Expired entries are removed and reported as
// misses. Hits update access recency and frequency.
func (s *Store) Get(ctx context.Context, key cache.Key) (*cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	now := time.Now()

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		s.mu.Unlock()
		return nil, false, nil
	}
	if entry.Expired(now) {
		s.removeLocked(key)
		s.misses++
		s.mu.Unlock()
		s.notify(key, ReasonExpired)
		return nil, false, nil
	}

	entry.Touch(now)
	s.hits++
	clone := entry.Clone()
	s.mu.Unlock()

	return clone, true, nil
}

// Set stores an entry, evicting lower-value entries first when the
// write would exceed the byte budget. Returns ErrEntryTooLarge when a
// single entry cannot fit even after eviction.
func (s *Store) Set(ctx context.Context, entry *cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Key == "" {
		return cache.ErrInvalidKey
	}

	size := entry.Size()
	if s.budgetBytes > 0 && size > s.budgetBytes {
		return cache.ErrEntryTooLarge
	}

	stored := entry.Clone()
	stored.Tier = cache.TierFast

	var evicted []cache.Key

	s.mu.Lock()
	if old, ok := s.entries[entry.Key]; ok {
		s.usedBytes -= old.Size()
		delete(s.entries, entry.Key)
	}

	if s.budgetBytes > 0 && s.usedBytes+size > s.budgetBytes {
		needed := s.usedBytes + size - s.budgetBytes
		victims := s.policy.SelectVictims(s.snapshotLocked(), needed, time.Now())
		for _, k := range victims {
			s.removeLocked(k)
			evicted = append(evicted, k)
		}
		if s.usedBytes+size > s.budgetBytes {
			s.mu.Unlock()
			s.notifyAll(evicted, ReasonEvicted)
			return cache.ErrEntryTooLarge
		}
	}

	s.entries[stored.Key] = stored
	s.usedBytes += size
	s.mu.Unlock()

	s.notifyAll(evicted, ReasonEvicted)
	return nil
}

// Delete removes an entry by key.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.removeLocked(key)
	s.mu.Unlock()
	return nil
}

// Exists checks whether a key is present and unexpired.
func (s *Store) Exists(ctx context.Context, key cache.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return !entry.Expired(time.Now()), nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = make(map[cache.Key]*cache.Entry)
	s.usedBytes = 0
	s.mu.Unlock()
	return nil
}

// Cleanup removes expired entries and returns their keys. Used by the
// background sweep.
func (s *Store) Cleanup(now time.Time) []cache.Key {
	s.mu.Lock()
	var removed []cache.Key
	for key, entry := range s.entries {
		if entry.Expired(now) {
			s.removeLocked(key)
			removed = append(removed, key)
		}
	}
	s.mu.Unlock()

	s.notifyAll(removed, ReasonExpired)
	return removed
}

// Snapshot returns policy snapshots for all resident entries.
func (s *Store) Snapshot() []eviction.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Occupancy implements cache.OccupancyProvider.
func (s *Store) Occupancy(ctx context.Context) (cache.Occupancy, error) {
	if err := ctx.Err(); err != nil {
		return cache.Occupancy{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cache.Occupancy{
		Entries:     int64(len(s.entries)),
		Bytes:       s.usedBytes,
		BudgetBytes: s.budgetBytes,
	}, nil
}

// Stats implements cache.StatsProvider.
func (s *Store) Stats() cache.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cache.Stats{
		Hits:   s.hits,
		Misses: s.misses,
		Size:   int64(len(s.entries)),
	}
}

// snapshotLocked builds eviction snapshots. Must be called with a lock held.
func (s *Store) snapshotLocked() []eviction.Snapshot {
	snaps := make([]eviction.Snapshot, 0, len(s.entries))
	for key, e := range s.entries {
		snaps = append(snaps, eviction.Snapshot{
			Key:          key,
			Size:         e.Size(),
			Priority:     e.Priority,
			CreatedAt:    e.CreatedAt,
			LastAccessAt: e.LastAccessAt,
			AccessCount:  e.AccessCount,
			TTL:          e.TTL,
		})
	}
	return snaps
}

// removeLocked deletes an entry and adjusts accounting. Must be called
// with the write lock held.
func (s *Store) removeLocked(key cache.Key) {
	if entry, ok := s.entries[key]; ok {
		s.usedBytes -= entry.Size()
		delete(s.entries, key)
	}
}

// notify invokes the eviction hook outside the lock.
func (s *Store) notify(key cache.Key, reason RemovalReason) {
	if s.evictHook != nil {
		s.evictHook(key, reason)
	}
}

func (s *Store) notifyAll(keys []cache.Key, reason RemovalReason) {
	if s.evictHook == nil {
		return
	}
	for _, k := range keys {
		s.evictHook(k, reason)
	}
}

// Ensure Store implements the domain contracts.
var (
	_ cache.Backend           = (*Store)(nil)
	_ cache.StatsProvider     = (*Store)(nil)
	_ cache.OccupancyProvider = (*Store)(nil)
)
