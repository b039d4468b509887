// Package badger provides the durable cache tier backed by BadgerDB.
package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Config configures the BadgerDB store backing the durable tier.
type Config struct {
	// Dir is the directory to store data in.
	Dir string
	// InMemory keeps all data in memory (useful for testing).
	InMemory bool
	// SyncWrites flushes every write to disk before acknowledging.
	SyncWrites bool
	// ValueLogFileSize sets the size of value log files in bytes.
	ValueLogFileSize int64
	// ValueLogMaxEntries caps entries per value log file.
	ValueLogMaxEntries uint32
	// NumVersionsToKeep sets how many versions to keep per key.
	NumVersionsToKeep int
	// GCDiscardRatio is the discard ratio for value log GC.
	GCDiscardRatio float64
	// GCInterval is the interval between value log GC runs
	// (0 disables background GC).
	GCInterval time.Duration
	// KeyPrefix namespaces every cache key in the store.
	KeyPrefix string
	// Logger overrides the badger logger (nil silences it).
	Logger badger.Logger
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		ValueLogFileSize:   1 << 28,
		ValueLogMaxEntries: 1000000,
		NumVersionsToKeep:  1,
		GCDiscardRatio:     0.5,
		GCInterval:         5 * time.Minute,
	}
}

// Option overrides one storage setting.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) { c.Dir = dir }
}

// WithInMemory enables in-memory storage.
func WithInMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

// WithSyncWrites enables synchronous writes.
func WithSyncWrites() Option {
	return func(c *Config) { c.SyncWrites = true }
}

// WithValueLogFileSize sets the value log file size.
func WithValueLogFileSize(size int64) Option {
	return func(c *Config) { c.ValueLogFileSize = size }
}

// WithNumVersionsToKeep sets the number of versions to keep.
func WithNumVersionsToKeep(n int) Option {
	return func(c *Config) { c.NumVersionsToKeep = n }
}

// WithGCDiscardRatio sets the GC discard ratio.
func WithGCDiscardRatio(ratio float64) Option {
	return func(c *Config) { c.GCDiscardRatio = ratio }
}

// WithGCInterval sets the value log GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) { c.GCInterval = d }
}

// WithKeyPrefix sets the keyspace prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithLogger sets the badger logger.
func WithLogger(logger badger.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// openDB opens a BadgerDB database with the given configuration.
func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(cfg.Logger)

	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}
	if cfg.ValueLogMaxEntries > 0 {
		opts = opts.WithValueLogMaxEntries(cfg.ValueLogMaxEntries)
	}
	if cfg.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	return db, nil
}
