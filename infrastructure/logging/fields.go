package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for cache runtime logging.

// CacheKey adds a cache key field.
func CacheKey(key cache.Key) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", string(key))
	}
}

// Tier adds a tier field.
func Tier(t cache.Tier) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tier", string(t))
	}
}

// FromTier adds a from_tier field for entry movement.
func FromTier(t cache.Tier) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_tier", string(t))
	}
}

// ToTier adds a to_tier field for entry movement.
func ToTier(t cache.Tier) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_tier", string(t))
	}
}

// Modality adds a modality field.
func Modality(m cache.Modality) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("modality", string(m))
	}
}

// Source adds a hit source field (exact, prefix, similarity).
func Source(source string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("source", source)
	}
}

// Hit adds a hit field.
func Hit(hit bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("hit", hit)
	}
}

// Priority adds a priority field.
func Priority(p int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("priority", p)
	}
}

// EntryBytes adds an entry size field.
func EntryBytes(n int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("entry_bytes", n)
	}
}

// Evicted adds an eviction count field.
func Evicted(count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("evicted", count)
	}
}

// Similarity adds a similarity score field.
func Similarity(score float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64("similarity", score)
	}
}

// MatchedTokens adds a matched token count field.
func MatchedTokens(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("matched_tokens", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// DurationNs adds a duration field in nanoseconds.
func DurationNs(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ns", d.Nanoseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// DocumentID adds a document ID field.
func DocumentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("document_id", id)
	}
}

// Count adds a generic count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Float64 adds a float field with custom key.
func Float64(key string, value float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64(key, value)
	}
}
