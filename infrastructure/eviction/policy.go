// Package eviction decides which entries leave a tier when its byte
// budget is exceeded and predicts adaptive TTLs from priority and
// access history.
package eviction

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Snapshot is the per-entry view the policy scores. The tier hands the
// policy snapshots rather than entries so scoring never touches payloads.
type Snapshot struct {
	Key          cache.Key
	Size         int64
	Priority     int
	CreatedAt    time.Time
	LastAccessAt time.Time
	AccessCount  int64
	TTL          time.Duration
}

// Expired reports whether the snapshot's TTL elapsed at the given time.
func (s Snapshot) Expired(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.After(s.CreatedAt.Add(s.TTL))
}

// Config tunes the hybrid recency/frequency score and TTL prediction.
type Config struct {
	// RecencyWeight weighs the recency rank in the eviction score.
	RecencyWeight float64
	// FrequencyWeight weighs the frequency rank in the eviction score.
	FrequencyWeight float64
	// BaseTTL is the TTL baseline before priority/frequency scaling.
	BaseTTL time.Duration
	// MinTTL floors predicted TTLs.
	MinTTL time.Duration
	// MaxTTL caps predicted TTLs.
	MaxTTL time.Duration
}

// DefaultConfig returns the policy defaults.
func DefaultConfig() Config {
	return Config{
		RecencyWeight:   0.6,
		FrequencyWeight: 0.4,
		BaseTTL:         10 * time.Minute,
		MinTTL:          time.Minute,
		MaxTTL:          24 * time.Hour,
	}
}

// Policy implements hybrid recency/frequency eviction with an
// expired-first pass, and deterministic adaptive TTL prediction.
type Policy struct {
	cfg Config
}

// NewPolicy creates a policy from the given configuration, filling
// zero values from defaults.
func NewPolicy(cfg Config) *Policy {
	def := DefaultConfig()
	if cfg.RecencyWeight == 0 && cfg.FrequencyWeight == 0 {
		cfg.RecencyWeight = def.RecencyWeight
		cfg.FrequencyWeight = def.FrequencyWeight
	}
	if cfg.BaseTTL == 0 {
		cfg.BaseTTL = def.BaseTTL
	}
	if cfg.MinTTL == 0 {
		cfg.MinTTL = def.MinTTL
	}
	if cfg.MaxTTL == 0 {
		cfg.MaxTTL = def.MaxTTL
	}
	return &Policy{cfg: cfg}
}

// OnInsert admits an entry to the policy. Entries arriving without an
// explicit TTL are stamped with a predicted one from their priority and
// access history; explicit TTLs are left alone.
func (p *Policy) OnInsert(entry *cache.Entry) {
	if entry == nil {
		return
	}
	if entry.TTL <= 0 {
		entry.TTL = p.PredictTTL(entry.Priority, entry.AccessCount)
	}
}

// SelectVictims returns keys to evict, in eviction order, until at
// least bytesNeeded would be freed. Expired entries are selected first
// (oldest expiry first) regardless of score; remaining candidates are
// ranked by the hybrid score, lowest first.
func (p *Policy) SelectVictims(entries []Snapshot, bytesNeeded int64, now time.Time) []cache.Key {
	if bytesNeeded <= 0 || len(entries) == 0 {
		return nil
	}

	var expired, live []Snapshot
	for _, e := range entries {
		if e.Expired(now) {
			expired = append(expired, e)
		} else {
			live = append(live, e)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		ei := expired[i].CreatedAt.Add(expired[i].TTL)
		ej := expired[j].CreatedAt.Add(expired[j].TTL)
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return expired[i].Key < expired[j].Key
	})

	var victims []cache.Key
	var freed int64
	for _, e := range expired {
		victims = append(victims, e.Key)
		freed += e.Size
		if freed >= bytesNeeded {
			return victims
		}
	}

	scores := p.scores(live)
	sort.Slice(live, func(i, j int) bool {
		si, sj := scores[live[i].Key], scores[live[j].Key]
		if si != sj {
			return si < sj
		}
		return live[i].Key < live[j].Key
	})

	for _, e := range live {
		victims = append(victims, e.Key)
		freed += e.Size
		if freed >= bytesNeeded {
			break
		}
	}
	return victims
}

// scores computes the hybrid score per key:
// score = w1*recencyRank + w2*frequencyRank, where rank 0 is the
// least recently used / least frequently used entry. Low score evicts
// first.
func (p *Policy) scores(entries []Snapshot) map[cache.Key]float64 {
	recency := make([]Snapshot, len(entries))
	copy(recency, entries)
	sort.Slice(recency, func(i, j int) bool {
		if !recency[i].LastAccessAt.Equal(recency[j].LastAccessAt) {
			return recency[i].LastAccessAt.Before(recency[j].LastAccessAt)
		}
		return recency[i].Key < recency[j].Key
	})

	frequency := make([]Snapshot, len(entries))
	copy(frequency, entries)
	sort.Slice(frequency, func(i, j int) bool {
		if frequency[i].AccessCount != frequency[j].AccessCount {
			return frequency[i].AccessCount < frequency[j].AccessCount
		}
		return frequency[i].Key < frequency[j].Key
	})

	scores := make(map[cache.Key]float64, len(entries))
	for rank, e := range recency {
		scores[e.Key] += p.cfg.RecencyWeight * float64(rank)
	}
	for rank, e := range frequency {
		scores[e.Key] += p.cfg.FrequencyWeight * float64(rank)
	}
	return scores
}

// PredictTTL predicts an adaptive expiry from priority and access
// frequency. Deterministic given the same inputs: baseline scaled
// linearly by priority and by a capped hot-entry factor, clamped to
// the configured floor and ceiling. Non-decreasing in priority.
func (p *Policy) PredictTTL(priority int, accessCount int64) time.Duration {
	priority = cache.ClampPriority(priority)

	priorityFactor := 1.0 + 0.5*float64(priority-cache.MinPriority)

	const hotCap = 10
	hits := accessCount
	if hits > hotCap {
		hits = hotCap
	}
	frequencyFactor := 1.0 + float64(hits)/hotCap

	ttl := time.Duration(float64(p.cfg.BaseTTL) * priorityFactor * frequencyFactor)
	if ttl < p.cfg.MinTTL {
		ttl = p.cfg.MinTTL
	}
	if ttl > p.cfg.MaxTTL {
		ttl = p.cfg.MaxTTL
	}
	return ttl
}

// Expired returns the keys of entries past their TTL at the given
// time, for background sweeps.
func (p *Policy) Expired(entries []Snapshot, now time.Time) []cache.Key {
	var keys []cache.Key
	for _, e := range entries {
		if e.Expired(now) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
