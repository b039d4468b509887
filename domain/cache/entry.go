// Package cache provides the domain model for multi-tier caching of
// inference artifacts: prompt/response pairs, KV attention caches,
// audio/video feature blocks, and document chunks.
package cache

import (
	"time"
)

// Key is a content-addressable identifier derived from canonicalized input.
type Key string

// Modality identifies the kind of artifact an entry holds.
type Modality string

// Supported modalities.
const (
	ModalityText          Modality = "text"
	ModalityAudio         Modality = "audio"
	ModalityVideo         Modality = "video"
	ModalityDocumentChunk Modality = "document-chunk"
	ModalityKVCache       Modality = "kv-cache"
)

// Tier identifies a storage tier by latency/cost profile.
type Tier string

// Storage tiers, in increasing-latency order.
const (
	TierFast    Tier = "fast"
	TierShared  Tier = "shared"
	TierDurable Tier = "durable"
)

// Priority bounds for caller-assigned importance.
const (
	MinPriority = 1
	MaxPriority = 5
)

// Entry is the unit of storage. The payload is opaque to the cache;
// embedding and token prefix are optional and drive the similarity
// and prefix indices respectively.
type Entry struct {
	Key         Key               `json:"key"`
	Modality    Modality          `json:"modality"`
	Payload     []byte            `json:"payload"`
	Embedding   []float32         `json:"embedding,omitempty"`
	TokenPrefix []int             `json:"token_prefix,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	Tier     Tier `json:"tier"`
	Priority int  `json:"priority"`

	CreatedAt    time.Time     `json:"created_at"`
	LastAccessAt time.Time     `json:"last_access_at"`
	AccessCount  int64         `json:"access_count"`
	TTL          time.Duration `json:"ttl"`
}

// Size returns the approximate in-memory footprint of the entry in bytes.
// Used for tier byte budgets; intentionally an estimate, not an exact
// accounting of runtime overhead.
func (e *Entry) Size() int64 {
	size := int64(len(e.Key)) + int64(len(e.Payload))
	size += int64(len(e.Embedding)) * 4
	size += int64(len(e.TokenPrefix)) * 8
	for k, v := range e.Metadata {
		size += int64(len(k)) + int64(len(v))
	}
	return size
}

// Expired reports whether the entry's TTL has elapsed at the given time.
// A zero TTL means the entry never expires.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.After(e.CreatedAt.Add(e.TTL))
}

// Touch records an access at the given time.
func (e *Entry) Touch(now time.Time) {
	e.LastAccessAt = now
	e.AccessCount++
}

// Clone returns a deep copy of the entry so callers cannot mutate
// stored state.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Payload != nil {
		c.Payload = make([]byte, len(e.Payload))
		copy(c.Payload, e.Payload)
	}
	if e.Embedding != nil {
		c.Embedding = make([]float32, len(e.Embedding))
		copy(c.Embedding, e.Embedding)
	}
	if e.TokenPrefix != nil {
		c.TokenPrefix = make([]int, len(e.TokenPrefix))
		copy(c.TokenPrefix, e.TokenPrefix)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ClampPriority normalizes a caller-supplied priority into the valid range.
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}
