// Package application provides the cache manager, which coordinates the
// lookup pipeline, tier placement, and the prefix and similarity indices.
package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/domain/vector"
	"github.com/felixgeelhaar/modelcache/infrastructure/eviction"
	"github.com/felixgeelhaar/modelcache/infrastructure/fingerprint"
	"github.com/felixgeelhaar/modelcache/infrastructure/lifecycle"
	"github.com/felixgeelhaar/modelcache/infrastructure/logging"
	infraprefix "github.com/felixgeelhaar/modelcache/infrastructure/prefix"
	"github.com/felixgeelhaar/modelcache/infrastructure/storage/memory"
	"github.com/felixgeelhaar/modelcache/infrastructure/storage/tiered"
	"github.com/felixgeelhaar/modelcache/infrastructure/telemetry"
	infravector "github.com/felixgeelhaar/modelcache/infrastructure/vector"
)

// Lookup sources, in pipeline order.
const (
	SourceExact      = "exact"
	SourcePrefix     = "prefix"
	SourceSimilarity = "similarity"
)

// Request describes a cache operation. Key takes precedence when set;
// otherwise the key is derived from tokens, text, or the raw payload.
type Request struct {
	Key       cache.Key
	Text      string
	Payload   []byte
	Tokens    []int
	Embedding []float32
	Modality  cache.Modality
	Context   fingerprint.Context
	Priority  int
	TTL       time.Duration
	Metadata  map[string]string
}

// Result is the outcome of a lookup. A miss is Hit == false with a nil
// error; errors are reserved for malformed input and backend failures.
type Result struct {
	Hit           bool
	Source        string
	Key           cache.Key
	Entry         *cache.Entry
	MatchedTokens int
	Similarity    float32
}

// PutItem pairs a request with the payload to store.
type PutItem struct {
	Request Request
	Value   []byte
}

// Stats aggregates manager-level counters with per-tier statistics.
type Stats struct {
	Hits        map[string]int64
	Misses      int64
	HitRate     float64
	Modalities  map[cache.Modality]int64
	Fast        cache.Occupancy
	Tiers       map[cache.Tier]cache.Stats
	Promotions  int64
	Demotions   int64
	ReplFailed  int64
	Tracked     int
	PrefixPaths int
	Vectors     int64
}

// Manager coordinates the tiers, the indices, and entry lifecycles. It is
// safe for concurrent use.
type Manager struct {
	keyer   *fingerprint.Keyer
	fast    *memory.Store
	store   *tiered.Store
	trie    *infraprefix.Trie
	index   *infravector.Index
	policy  *eviction.Policy
	tracker *lifecycle.Tracker
	metrics telemetry.Metrics

	threshold float64
	prefixOn  bool
	simOn     bool
	searchK   int
	chunkSize int

	hitExact      atomic.Int64
	hitPrefix     atomic.Int64
	hitSimilarity atomic.Int64
	misses        atomic.Int64

	modMu      sync.Mutex
	modalities map[cache.Modality]int64

	occMu       sync.Mutex
	lastBytes   int64
	lastEntries int64
	lastRepl    int64

	stop   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewManager builds a manager from the given options.
func NewManager(opts ...Option) (*Manager, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &telemetry.NoopMetricsProvider{}
	}
	if cfg.SearchK <= 0 {
		cfg.SearchK = 4
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}

	tracker, err := lifecycle.NewTracker()
	if err != nil {
		return nil, fmt.Errorf("create lifecycle tracker: %w", err)
	}

	m := &Manager{
		keyer:      fingerprint.New(),
		trie:       infraprefix.NewTrie(),
		policy:     eviction.NewPolicy(cfg.Eviction),
		tracker:    tracker,
		metrics:    cfg.Metrics,
		threshold:  cfg.SimilarityThreshold,
		prefixOn:   cfg.PrefixMatching,
		simOn:      cfg.SimilaritySearch,
		searchK:    cfg.SearchK,
		chunkSize:  cfg.ChunkSize,
		modalities: make(map[cache.Modality]int64),
		stop:       make(chan struct{}),
	}
	m.index = infravector.NewIndex(infravector.WithThreshold(float32(cfg.SimilarityThreshold)))

	m.fast = memory.NewStore(
		memory.WithBudgetBytes(cfg.FastBudgetBytes),
		memory.WithPolicy(m.policy),
		memory.WithEvictionHook(m.onFastRemoval),
	)

	tieredOpts := []tiered.Option{}
	if cfg.Shared != nil {
		tieredOpts = append(tieredOpts, tiered.WithShared(cfg.Shared))
	}
	if cfg.Durable != nil {
		tieredOpts = append(tieredOpts, tiered.WithDurable(cfg.Durable))
	}
	m.store = tiered.NewStore(m.fast, tieredOpts...)

	if cfg.CleanupInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop(cfg.CleanupInterval)
	}

	logging.Info().
		Add(logging.Component("manager")).
		Add(logging.EntryBytes(cfg.FastBudgetBytes)).
		Add(logging.Float64("similarity_threshold", cfg.SimilarityThreshold)).
		Msg("cache manager started")

	return m, nil
}

// onFastRemoval is invoked by the fast tier when it drops an entry, both
// for budget eviction and for expiry. The entry may still live in lower
// tiers, so index references are pruned lazily on lookup instead.
func (m *Manager) onFastRemoval(key cache.Key, reason memory.RemovalReason) {
	ctx := context.Background()
	if reason == memory.ReasonExpired {
		_ = m.tracker.Expire(key)
		m.metrics.RecordExpiration(ctx, cache.TierFast, 1)
	} else {
		_ = m.tracker.Evict(key)
		m.metrics.RecordEviction(ctx, cache.TierFast, 1)
	}
	m.tracker.Remove(key)
}

// sweepLoop periodically drops expired entries from the fast tier and
// refreshes occupancy and replication gauges.
func (m *Manager) sweepLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			expired := m.fast.Cleanup(now)
			if len(expired) > 0 {
				logging.Debug().
					Add(logging.Component("manager")).
					Add(logging.Count(len(expired))).
					Msg("expired entries swept")
			}
			m.syncGauges(context.Background())
		}
	}
}

// syncGauges pushes occupancy and replication-failure deltas to telemetry.
func (m *Manager) syncGauges(ctx context.Context) {
	occ, err := m.fast.Occupancy(ctx)
	if err != nil {
		return
	}
	_, _, repl := m.store.Counters()

	m.occMu.Lock()
	dBytes := occ.Bytes - m.lastBytes
	dEntries := occ.Entries - m.lastEntries
	dRepl := repl - m.lastRepl
	m.lastBytes = occ.Bytes
	m.lastEntries = occ.Entries
	m.lastRepl = repl
	m.occMu.Unlock()

	if dBytes != 0 || dEntries != 0 {
		m.metrics.RecordOccupancyDelta(ctx, dBytes, dEntries)
	}
	for i := int64(0); i < dRepl; i++ {
		m.metrics.RecordReplicationFailure(ctx, cache.TierShared)
	}
}

// deriveKey resolves the cache key for a request. An explicit key wins;
// token sequences key KV-cache artifacts, text keys segments, and any
// other payload is fingerprinted directly.
func (m *Manager) deriveKey(req Request) (cache.Key, error) {
	if req.Key != "" {
		return req.Key, nil
	}
	if len(req.Tokens) > 0 && req.Modality == cache.ModalityKVCache {
		return m.keyer.TokenKey(req.Tokens, req.Context), nil
	}
	if req.Text != "" {
		return m.keyer.SegmentKey(req.Text, req.Context), nil
	}
	if len(req.Payload) > 0 {
		return m.keyer.Key(req.Payload, req.Modality, req.Context), nil
	}
	return "", cache.ErrInvalidKey
}

// Get runs the lookup pipeline: exact match first, then the token prefix
// index, then similarity search. A fully exhausted pipeline is a miss
// with a nil error.
func (m *Manager) Get(ctx context.Context, req Request) (*Result, error) {
	if m.closed.Load() {
		return nil, cache.ErrClosed
	}
	return m.lookup(ctx, req)
}

// lookup is the pipeline body shared by Get and BatchGet.
func (m *Manager) lookup(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	key, err := m.deriveKey(req)
	if err != nil {
		return nil, err
	}

	entry, found, err := m.store.Get(ctx, key)
	if err != nil {
		m.metrics.RecordError(ctx, "lookup", map[string]string{"stage": SourceExact})
		return nil, err
	}
	if found {
		return m.hit(ctx, req, start, &Result{
			Hit:    true,
			Source: SourceExact,
			Key:    key,
			Entry:  entry,
		}), nil
	}

	if m.prefixOn && len(req.Tokens) > 0 {
		if res, ok := m.prefixLookup(ctx, req.Tokens); ok {
			return m.hit(ctx, req, start, res), nil
		}
	}

	if m.simOn && len(req.Embedding) > 0 {
		res, err := m.similarityLookup(ctx, req.Embedding)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return m.hit(ctx, req, start, res), nil
		}
	}

	m.misses.Add(1)
	m.countModality(req.Modality)
	m.metrics.RecordLookup(ctx, req.Modality, "", false, time.Since(start))
	return &Result{Hit: false, Key: key}, nil
}

// prefixLookup resolves the deepest materialized prefix for the query
// tokens. Stale trie references whose entries no longer exist in any
// tier are pruned and the lookup falls through.
func (m *Manager) prefixLookup(ctx context.Context, tokens []int) (*Result, bool) {
	match, ok := m.trie.LongestPrefixMatch(tokens)
	if !ok {
		return nil, false
	}
	entry, found, err := m.store.Get(ctx, match.Key)
	if err != nil || !found {
		m.trie.RemoveKey(match.Key)
		return nil, false
	}
	return &Result{
		Hit:           true,
		Source:        SourcePrefix,
		Key:           match.Key,
		Entry:         entry,
		MatchedTokens: match.MatchedTokens,
	}, true
}

// similarityLookup scans the nearest index records above the threshold
// and returns the first one whose entry still exists. Records pointing
// at departed entries are removed as they are encountered.
func (m *Manager) similarityLookup(ctx context.Context, embedding []float32) (*Result, error) {
	results, err := m.index.Search(ctx, embedding, m.searchK)
	if err != nil {
		m.metrics.RecordError(ctx, "lookup", map[string]string{"stage": SourceSimilarity})
		return nil, err
	}
	for _, r := range results {
		key := cache.Key(r.Metadata["key"])
		if key == "" {
			key = cache.Key(r.ID)
		}
		entry, found, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			_ = m.index.Remove(ctx, r.ID)
			continue
		}
		return &Result{
			Hit:        true,
			Source:     SourceSimilarity,
			Key:        key,
			Entry:      entry,
			Similarity: r.Similarity,
		}, nil
	}
	return nil, nil
}

// SearchSimilar returns up to k live entries whose embeddings score at
// or above the similarity threshold, ordered descending by similarity.
// Index records whose entries have departed are pruned as encountered.
func (m *Manager) SearchSimilar(ctx context.Context, embedding []float32, k int) ([]*Result, error) {
	if m.closed.Load() {
		return nil, cache.ErrClosed
	}
	results, err := m.index.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, 0, len(results))
	for _, r := range results {
		key := cache.Key(r.Metadata["key"])
		if key == "" {
			key = cache.Key(r.ID)
		}
		entry, found, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			_ = m.index.Remove(ctx, r.ID)
			continue
		}
		out = append(out, &Result{
			Hit:        true,
			Source:     SourceSimilarity,
			Key:        key,
			Entry:      entry,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// hit finalizes counters and telemetry for a successful lookup.
func (m *Manager) hit(ctx context.Context, req Request, start time.Time, res *Result) *Result {
	switch res.Source {
	case SourceExact:
		m.hitExact.Add(1)
	case SourcePrefix:
		m.hitPrefix.Add(1)
	case SourceSimilarity:
		m.hitSimilarity.Add(1)
	}
	m.countModality(req.Modality)
	m.metrics.RecordLookup(ctx, req.Modality, res.Source, true, time.Since(start))
	logging.Debug().
		Add(logging.Component("manager")).
		Add(logging.CacheKey(res.Key)).
		Add(logging.Source(res.Source)).
		Add(logging.Modality(req.Modality)).
		Msg("cache hit")
	return res
}

// Put stores a payload under the derived key, registers it with the
// prefix and similarity indices, and admits it to lifecycle tracking.
// If similarity indexing rejects the embedding, the write is rolled back.
func (m *Manager) Put(ctx context.Context, req Request, value []byte) (cache.Key, error) {
	if m.closed.Load() {
		return "", cache.ErrClosed
	}
	key, err := m.putEntry(ctx, req, value)
	if err != nil {
		return "", err
	}
	m.syncGauges(ctx)
	return key, nil
}

// putEntry is the write body shared by Put and BatchPut. Gauge syncing
// is left to the caller so batches pay for it once.
func (m *Manager) putEntry(ctx context.Context, req Request, value []byte) (cache.Key, error) {
	start := time.Now()

	if req.Payload == nil {
		req.Payload = value
	}
	key, err := m.deriveKey(req)
	if err != nil {
		return "", err
	}

	priority := cache.ClampPriority(req.Priority)

	now := time.Now()
	entry := &cache.Entry{
		Key:          key,
		Modality:     req.Modality,
		Payload:      value,
		Embedding:    req.Embedding,
		TokenPrefix:  req.Tokens,
		Metadata:     req.Metadata,
		Tier:         cache.TierFast,
		Priority:     priority,
		CreatedAt:    now,
		LastAccessAt: now,
		TTL:          req.TTL,
	}
	m.policy.OnInsert(entry)

	if err := m.store.Set(ctx, entry); err != nil {
		m.metrics.RecordError(ctx, "put", map[string]string{"modality": string(req.Modality)})
		return "", err
	}

	if m.prefixOn && len(req.Tokens) > 0 {
		if err := m.trie.Insert(req.Tokens, key); err != nil {
			_ = m.store.Delete(ctx, key)
			return "", err
		}
	}

	// Embeddings are always indexed; the similarity toggle gates the
	// lookup stage, not registration, so direct chunk search keeps
	// working when the stage is off.
	if len(req.Embedding) > 0 {
		rec := &vector.Record{
			ID:        string(key),
			Embedding: req.Embedding,
			Metadata:  map[string]string{"key": string(key)},
		}
		if err := m.index.Insert(ctx, rec); err != nil {
			m.trie.RemoveKey(key)
			_ = m.store.Delete(ctx, key)
			return "", err
		}
	}

	m.tracker.Admit(key, cache.TierFast)
	m.metrics.RecordPut(ctx, req.Modality, entry.Size(), time.Since(start))

	logging.Debug().
		Add(logging.Component("manager")).
		Add(logging.CacheKey(key)).
		Add(logging.Modality(req.Modality)).
		Add(logging.Priority(priority)).
		Add(logging.EntryBytes(entry.Size())).
		Msg("entry stored")

	return key, nil
}

// BatchGet looks up each request in order, paying the closed check once
// for the batch. Per-request misses are recorded in the results; the
// first hard error aborts the batch.
func (m *Manager) BatchGet(ctx context.Context, reqs []Request) ([]*Result, error) {
	if m.closed.Load() {
		return nil, cache.ErrClosed
	}
	results := make([]*Result, 0, len(reqs))
	for _, req := range reqs {
		res, err := m.lookup(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// BatchPut stores each item in order, syncing occupancy gauges once at
// the end instead of per item. Returns the keys written so far alongside
// the first hard error.
func (m *Manager) BatchPut(ctx context.Context, items []PutItem) ([]cache.Key, error) {
	if m.closed.Load() {
		return nil, cache.ErrClosed
	}
	keys := make([]cache.Key, 0, len(items))
	var err error
	for _, item := range items {
		var key cache.Key
		key, err = m.putEntry(ctx, item.Request, item.Value)
		if err != nil {
			break
		}
		keys = append(keys, key)
	}
	m.syncGauges(ctx)
	return keys, err
}

// Delete removes the entry from every tier and both indices. Deleting an
// absent key is not an error.
func (m *Manager) Delete(ctx context.Context, key cache.Key) error {
	if m.closed.Load() {
		return cache.ErrClosed
	}
	if key == "" {
		return cache.ErrInvalidKey
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return err
	}
	m.trie.RemoveKey(key)
	_ = m.index.Remove(ctx, string(key))
	m.tracker.Remove(key)
	m.syncGauges(ctx)
	return nil
}

// Promote copies an entry into a faster tier and records the transition.
func (m *Manager) Promote(ctx context.Context, key cache.Key, to cache.Tier) error {
	from := m.trackedTier(key)
	if err := m.store.Promote(ctx, key, to); err != nil {
		return err
	}
	_ = m.tracker.Promote(key, to)
	m.metrics.RecordPromotion(ctx, from, to)
	return nil
}

// Demote moves an entry into a slower tier and records the transition.
func (m *Manager) Demote(ctx context.Context, key cache.Key, to cache.Tier) error {
	from := m.trackedTier(key)
	if err := m.store.Demote(ctx, key, to); err != nil {
		return err
	}
	_ = m.tracker.Demote(key, to)
	m.metrics.RecordDemotion(ctx, from, to)
	return nil
}

// trackedTier reports the last known tier of an entry, defaulting to the
// fast tier for untracked keys.
func (m *Manager) trackedTier(key cache.Key) cache.Tier {
	if lctx, ok := m.tracker.Context(key); ok {
		return lctx.Tier
	}
	return cache.TierFast
}

// Exists reports whether a live entry exists in any tier.
func (m *Manager) Exists(ctx context.Context, key cache.Key) (bool, error) {
	if m.closed.Load() {
		return false, cache.ErrClosed
	}
	return m.store.Exists(ctx, key)
}

// Clear drops every entry from every tier. Index references survive the
// clear and are pruned lazily as lookups encounter them.
func (m *Manager) Clear(ctx context.Context) error {
	if m.closed.Load() {
		return cache.ErrClosed
	}
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.syncGauges(ctx)
	return nil
}

func (m *Manager) countModality(mod cache.Modality) {
	if mod == "" {
		return
	}
	m.modMu.Lock()
	m.modalities[mod]++
	m.modMu.Unlock()
}

// Stats returns a snapshot of manager counters and per-tier statistics.
func (m *Manager) Stats(ctx context.Context) Stats {
	hits := map[string]int64{
		SourceExact:      m.hitExact.Load(),
		SourcePrefix:     m.hitPrefix.Load(),
		SourceSimilarity: m.hitSimilarity.Load(),
	}
	total := hits[SourceExact] + hits[SourcePrefix] + hits[SourceSimilarity]
	misses := m.misses.Load()

	var rate float64
	if total+misses > 0 {
		rate = float64(total) / float64(total+misses)
	}

	m.modMu.Lock()
	mods := make(map[cache.Modality]int64, len(m.modalities))
	for k, v := range m.modalities {
		mods[k] = v
	}
	m.modMu.Unlock()

	occ, _ := m.fast.Occupancy(ctx)
	promotions, demotions, replFailed := m.store.Counters()
	vecCount, _ := m.index.Count(ctx)

	return Stats{
		Hits:        hits,
		Misses:      misses,
		HitRate:     rate,
		Modalities:  mods,
		Fast:        occ,
		Tiers:       m.store.TierStats(),
		Promotions:  promotions,
		Demotions:   demotions,
		ReplFailed:  replFailed,
		Tracked:     m.tracker.Len(),
		PrefixPaths: m.trie.Len(),
		Vectors:     vecCount,
	}
}

// Close stops the sweep loop and shuts down the tiers. Close is
// idempotent.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.stop)
	m.wg.Wait()
	return m.store.Close()
}
