// Package prefix provides the domain contract for token-prefix matching,
// which backs KV-cache reuse: a request whose leading tokens match a
// cached prefill can skip recomputing that prefix.
package prefix

import (
	"errors"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Match is the result of a longest-prefix lookup.
type Match struct {
	// MatchedTokens is how many leading query tokens the entry covers.
	// The caller must compute the remaining suffix itself.
	MatchedTokens int
	// Key identifies the cache entry materialized at that prefix depth.
	Key cache.Key
}

// Matcher indexes token sequences for longest-common-prefix lookup.
type Matcher interface {
	// Insert attaches an entry key at the terminal node of the token path.
	// Re-inserting at the same path replaces the previous key.
	Insert(tokens []int, key cache.Key) error

	// LongestPrefixMatch walks the query tokens and returns the deepest
	// materialized entry along the path. An empty token sequence never
	// matches.
	LongestPrefixMatch(tokens []int) (Match, bool)

	// Remove detaches the entry at the exact token path and prunes
	// now-empty trie paths. Returns whether an entry was removed.
	Remove(tokens []int) bool

	// RemoveKey detaches every path whose entry is the given key.
	RemoveKey(key cache.Key) int

	// Len returns the number of materialized entries.
	Len() int
}

// ErrEmptyTokens is returned when an empty token sequence is inserted.
var ErrEmptyTokens = errors.New("empty token sequence")
