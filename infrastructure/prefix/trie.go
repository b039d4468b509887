// Package prefix provides a token-id trie implementing longest-prefix
// matching for KV-cache reuse.
package prefix

import (
	"sync"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/domain/prefix"
)

// node is one token-id transition in the trie. A node with hasEntry set
// marks a prefix depth where a prefill was materialized.
type node struct {
	children map[int]*node
	key      cache.Key
	hasEntry bool
}

func newNode() *node {
	return &node{children: make(map[int]*node)}
}

// Trie is a threadsafe token-prefix index. Mutations take the write
// lock; lookups walk under the read lock.
type Trie struct {
	root    *node
	entries int
	mu      sync.RWMutex
}

// NewTrie creates an empty prefix trie.
func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

// Insert attaches an entry key at the terminal node of the token path.
// Re-inserting at the same path replaces the previous key, so the most
// recent insertion wins.
func (t *Trie) Insert(tokens []int, key cache.Key) error {
	if len(tokens) == 0 {
		return prefix.ErrEmptyTokens
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	for _, tok := range tokens {
		child, ok := n.children[tok]
		if !ok {
			child = newNode()
			n.children[tok] = child
		}
		n = child
	}

	if !n.hasEntry {
		t.entries++
	}
	n.key = key
	n.hasEntry = true
	return nil
}

// LongestPrefixMatch walks the query tokens as far as nodes exist and
// returns the deepest materialized entry along the path, with the
// count of tokens it covers. An empty token sequence never matches.
func (t *Trie) LongestPrefixMatch(tokens []int) (prefix.Match, bool) {
	if len(tokens) == 0 {
		return prefix.Match{}, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var best prefix.Match
	found := false

	n := t.root
	for depth, tok := range tokens {
		child, ok := n.children[tok]
		if !ok {
			break
		}
		n = child
		if n.hasEntry {
			best = prefix.Match{MatchedTokens: depth + 1, Key: n.key}
			found = true
		}
	}

	return best, found
}

// Remove detaches the entry at the exact token path and prunes
// now-empty trie paths to bound memory.
func (t *Trie) Remove(tokens []int) bool {
	if len(tokens) == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Record the walk so empty nodes can be pruned bottom-up.
	path := make([]*node, 0, len(tokens)+1)
	n := t.root
	path = append(path, n)
	for _, tok := range tokens {
		child, ok := n.children[tok]
		if !ok {
			return false
		}
		n = child
		path = append(path, n)
	}

	if !n.hasEntry {
		return false
	}
	n.hasEntry = false
	n.key = ""
	t.entries--

	t.prune(path, tokens)
	return true
}

// RemoveKey detaches every materialized node holding the given key and
// prunes the paths it leaves empty. Returns the number of detached nodes.
func (t *Trie) RemoveKey(key cache.Key) int {
	if key == "" {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := t.removeKeyWalk(t.root, key)
	t.entries -= removed
	return removed
}

// Len returns the number of materialized entries.
func (t *Trie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries
}

// prune walks back up a recorded path deleting child links that lead
// to empty subtrees. Must be called with the write lock held.
func (t *Trie) prune(path []*node, tokens []int) {
	for i := len(path) - 1; i > 0; i-- {
		n := path[i]
		if n.hasEntry || len(n.children) > 0 {
			break
		}
		delete(path[i-1].children, tokens[i-1])
	}
}

// removeKeyWalk recursively detaches matching keys and prunes empty
// children. Returns the number of entries removed in this subtree.
func (t *Trie) removeKeyWalk(n *node, key cache.Key) int {
	removed := 0
	if n.hasEntry && n.key == key {
		n.hasEntry = false
		n.key = ""
		removed++
	}
	for tok, child := range n.children {
		removed += t.removeKeyWalk(child, key)
		if !child.hasEntry && len(child.children) == 0 {
			delete(n.children, tok)
		}
	}
	return removed
}

// Ensure Trie implements the domain contract.
var _ prefix.Matcher = (*Trie)(nil)
