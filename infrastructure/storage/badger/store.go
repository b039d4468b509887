package badger

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Store is the durable cache tier backed by BadgerDB. Entries are
// gzip-compressed JSON so cold artifacts cost less on disk.
type Store struct {
	db        *badger.DB
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
}

// NewStore opens BadgerDB and returns the durable tier.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}

	if cfg.GCInterval > 0 {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

// NewStoreFromDB creates the durable tier from an existing database.
func NewStoreFromDB(db *badger.DB, keyPrefix string) *Store {
	return &Store{
		db:        db,
		keyPrefix: keyPrefix,
		gcStop:    make(chan struct{}),
	}
}

// startGC starts the value log garbage collection goroutine.
func (s *Store) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for {
					if err := s.db.RunValueLogGC(discardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

// prefixKey adds the key prefix and tier namespace.
func (s *Store) prefixKey(key cache.Key) []byte {
	return []byte(s.keyPrefix + "entry:" + string(key))
}

// encode serializes and compresses an entry.
func encode(entry *cache.Entry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode decompresses and deserializes an entry.
func decode(raw []byte) (*cache.Entry, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Join(cache.ErrCorruptEntry, err)
	}
	data, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.Join(cache.ErrCorruptEntry, err)
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Join(cache.ErrCorruptEntry, err)
	}
	return &entry, nil
}

// Get retrieves an entry from the durable tier. A corrupt record is
// purged so it is never served twice.
func (s *Store) Get(ctx context.Context, key cache.Key) (*cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	prefixedKey := s.prefixKey(key)
	var raw []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixedKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(cache.ErrTierUnavailable, err)
	}

	entry, err := decode(raw)
	if err != nil {
		_ = s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(prefixedKey)
		})
		return nil, false, err
	}

	entry.Touch(time.Now())
	s.hits.Add(1)
	return entry, true, nil
}

// Set stores an entry in the durable tier. A positive TTL on the entry
// becomes the BadgerDB entry TTL.
func (s *Store) Set(ctx context.Context, entry *cache.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.Key == "" {
		return cache.ErrInvalidKey
	}

	stored := entry.Clone()
	stored.Tier = cache.TierDurable

	raw, err := encode(stored)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.prefixKey(stored.Key), raw)
		if stored.TTL > 0 {
			e = e.WithTTL(stored.TTL)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes an entry from the durable tier.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.prefixKey(key))
	})
}

// Exists checks whether a key is present in the durable tier.
func (s *Store) Exists(ctx context.Context, key cache.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.prefixKey(key))
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(cache.ErrTierUnavailable, err)
	}
	return true, nil
}

// Clear removes all entries in this store's namespace.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.DropPrefix([]byte(s.keyPrefix + "entry:"))
}

// Keys returns all cached keys under the given key prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]cache.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	namespace := s.keyPrefix + "entry:"
	fullPrefix := []byte(namespace + prefix)

	var keys []cache.Key

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = fullPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, cache.Key(it.Item().Key()[len(namespace):]))
		}
		return nil
	})

	return keys, err
}

// Stats returns hit and miss counters plus the entry count on disk.
func (s *Store) Stats() cache.Stats {
	var size int64

	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(s.keyPrefix + "entry:")

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			size++
		}
		return nil
	})

	return cache.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   size,
	}
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	close(s.gcStop)
	s.gcWg.Wait()

	return s.db.Close()
}

// DB returns the underlying BadgerDB database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Ensure Store implements the tier contracts.
var (
	_ cache.Backend       = (*Store)(nil)
	_ cache.StatsProvider = (*Store)(nil)
)
