package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Store is the shared cache tier backed by Redis. Entries are stored as
// JSON under a namespaced key so multiple deployments can share one
// Redis instance.
type Store struct {
	client    *redis.Client
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewStore connects to Redis and returns the shared tier.
func NewStore(cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}

	return &Store{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewStoreFromClient creates the shared tier from an existing Redis client.
func NewStoreFromClient(client *redis.Client, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// prefixKey adds the namespace prefix.
func (s *Store) prefixKey(key cache.Key) string {
	return s.keyPrefix + "entry:" + string(key)
}

// Get retrieves an entry from the shared tier. An absent or expired key
// is a miss, not an error.
func (s *Store) Get(ctx context.Context, key cache.Key) (*cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, s.wrapError(err)
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A payload we cannot decode must not be served again.
		_ = s.client.Del(ctx, s.prefixKey(key)).Err()
		return nil, false, errors.Join(cache.ErrCorruptEntry, err)
	}

	entry.Touch(time.Now())
	s.hits.Add(1)
	return &entry, true, nil
}

// Set stores an entry in the shared tier. A positive TTL on the entry
// becomes the Redis expiration so Redis drops it server-side.
func (s *Store) Set(ctx context.Context, entry *cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Key == "" {
		return cache.ErrInvalidKey
	}

	stored := entry.Clone()
	stored.Tier = cache.TierShared

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	var expiration time.Duration
	if stored.TTL > 0 {
		expiration = stored.TTL
	}

	if err := s.client.Set(ctx, s.prefixKey(stored.Key), data, expiration).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Delete removes an entry from the shared tier.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Exists checks whether a key is present in the shared tier.
func (s *Store) Exists(ctx context.Context, key cache.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	n, err := s.client.Exists(ctx, s.prefixKey(key)).Result()
	if err != nil {
		return false, s.wrapError(err)
	}
	return n > 0, nil
}

// Clear removes all entries in this store's namespace.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pattern := s.keyPrefix + "entry:*"
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return s.wrapError(err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return s.wrapError(err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return s.wrapError(err)
		}
	}
	return nil
}

// Stats returns hit and miss counters for this tier.
func (s *Store) Stats() cache.Stats {
	return cache.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		// Size is not tracked for Redis.
	}
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
func (s *Store) Client() *redis.Client {
	return s.client
}

// wrapError maps transport failures onto domain errors.
func (s *Store) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(cache.ErrOperationTimeout, err)
	}

	return errors.Join(cache.ErrTierUnavailable, err)
}

// Ensure Store implements the tier contracts.
var (
	_ cache.Backend       = (*Store)(nil)
	_ cache.StatsProvider = (*Store)(nil)
)
