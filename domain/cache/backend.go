package cache

import (
	"context"
)

// Backend defines the interface a single storage tier implements.
// Implementations may be in-memory, Redis, or any other backend.
type Backend interface {
	// Get retrieves an entry by key.
	// Returns the entry, whether it was found, and any error.
	Get(ctx context.Context, key Key) (*Entry, bool, error)

	// Set stores an entry under its key.
	Set(ctx context.Context, entry *Entry) error

	// Delete removes an entry by key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// Exists checks whether a key is present and unexpired.
	Exists(ctx context.Context, key Key) (bool, error)

	// Clear removes all entries from the tier.
	Clear(ctx context.Context) error
}

// Occupancy describes how full a tier is.
type Occupancy struct {
	// Entries is the current number of entries.
	Entries int64
	// Bytes is the approximate payload footprint.
	Bytes int64
	// BudgetBytes is the configured byte budget (0 = unbounded).
	BudgetBytes int64
}

// OccupancyProvider is an optional interface for tiers that track occupancy.
type OccupancyProvider interface {
	Occupancy(ctx context.Context) (Occupancy, error)
}

// Stats provides hit/miss counters for a single tier.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// StatsProvider is an optional interface for tiers that support statistics.
type StatsProvider interface {
	Stats() Stats
}
