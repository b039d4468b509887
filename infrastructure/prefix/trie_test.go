package prefix_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	domainprefix "github.com/felixgeelhaar/modelcache/domain/prefix"
	"github.com/felixgeelhaar/modelcache/infrastructure/prefix"
)

func TestTrie_InsertAndMatch(t *testing.T) {
	t.Parallel()

	t.Run("exact sequence matches at full depth", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1, 2, 3, 4}, "k1"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		m, ok := tr.LongestPrefixMatch([]int{1, 2, 3, 4})
		if !ok {
			t.Fatal("expected match")
		}
		if m.MatchedTokens != 4 {
			t.Errorf("MatchedTokens = %d, want 4", m.MatchedTokens)
		}
		if m.Key != "k1" {
			t.Errorf("Key = %s, want k1", m.Key)
		}
	})

	t.Run("longer query returns prefix coverage", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1, 2, 3, 4}, "k1"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		// Only token 5 needs fresh computation.
		m, ok := tr.LongestPrefixMatch([]int{1, 2, 3, 4, 5})
		if !ok {
			t.Fatal("expected match")
		}
		if m.MatchedTokens != 4 {
			t.Errorf("MatchedTokens = %d, want 4", m.MatchedTokens)
		}
	})

	t.Run("deepest materialized entry wins", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1, 2}, "shallow"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := tr.Insert([]int{1, 2, 3, 4}, "deep"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		m, ok := tr.LongestPrefixMatch([]int{1, 2, 3, 4, 5, 6})
		if !ok {
			t.Fatal("expected match")
		}
		if m.Key != "deep" || m.MatchedTokens != 4 {
			t.Errorf("match = %+v, want deep at depth 4", m)
		}

		// Query diverging after depth 2 falls back to the shallow entry.
		m, ok = tr.LongestPrefixMatch([]int{1, 2, 9})
		if !ok {
			t.Fatal("expected match")
		}
		if m.Key != "shallow" || m.MatchedTokens != 2 {
			t.Errorf("match = %+v, want shallow at depth 2", m)
		}
	})

	t.Run("re-insertion replaces key", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{7, 8}, "old"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := tr.Insert([]int{7, 8}, "new"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		m, _ := tr.LongestPrefixMatch([]int{7, 8})
		if m.Key != "new" {
			t.Errorf("Key = %s, want new (most recent insertion wins)", m.Key)
		}
		if tr.Len() != 1 {
			t.Errorf("Len() = %d, want 1", tr.Len())
		}
	})

	t.Run("empty token sequence never matches", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1}, "k"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		if _, ok := tr.LongestPrefixMatch(nil); ok {
			t.Error("empty query must not match")
		}
		if err := tr.Insert(nil, "k"); !errors.Is(err, domainprefix.ErrEmptyTokens) {
			t.Errorf("Insert(nil) error = %v, want ErrEmptyTokens", err)
		}
	})
}

func TestTrie_PrefixMonotonicity(t *testing.T) {
	t.Parallel()

	tr := prefix.NewTrie()
	full := []int{1, 2, 3, 4, 5, 6}
	for depth := 1; depth <= len(full); depth++ {
		if err := tr.Insert(full[:depth], cache.Key(fmt.Sprintf("k%d", depth))); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	// Every truncation of a matching sequence must match with coverage
	// at least its own length.
	for m := 1; m <= len(full); m++ {
		match, ok := tr.LongestPrefixMatch(full[:m])
		if !ok {
			t.Fatalf("prefix of length %d should match", m)
		}
		if match.MatchedTokens < m {
			t.Errorf("coverage %d < query length %d", match.MatchedTokens, m)
		}
	}
}

func TestTrie_Remove(t *testing.T) {
	t.Parallel()

	t.Run("removes entry and prunes path", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1, 2, 3}, "k1"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		if !tr.Remove([]int{1, 2, 3}) {
			t.Fatal("Remove() should report removal")
		}
		if _, ok := tr.LongestPrefixMatch([]int{1, 2, 3}); ok {
			t.Error("removed entry should not match")
		}
		if tr.Len() != 0 {
			t.Errorf("Len() = %d, want 0", tr.Len())
		}
	})

	t.Run("pruning preserves sibling entries", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1, 2, 3}, "a"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := tr.Insert([]int{1, 2, 9}, "b"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		tr.Remove([]int{1, 2, 3})

		m, ok := tr.LongestPrefixMatch([]int{1, 2, 9})
		if !ok || m.Key != "b" {
			t.Errorf("sibling entry lost after prune: %+v ok=%v", m, ok)
		}
	})

	t.Run("remove by key detaches all paths", func(t *testing.T) {
		t.Parallel()

		tr := prefix.NewTrie()
		if err := tr.Insert([]int{1, 2}, "shared"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := tr.Insert([]int{3, 4}, "shared"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := tr.Insert([]int{5}, "other"); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		if n := tr.RemoveKey("shared"); n != 2 {
			t.Errorf("RemoveKey() = %d, want 2", n)
		}
		if tr.Len() != 1 {
			t.Errorf("Len() = %d, want 1", tr.Len())
		}
		if _, ok := tr.LongestPrefixMatch([]int{5}); !ok {
			t.Error("unrelated entry should survive RemoveKey")
		}
	})
}

func TestTrie_Concurrency(t *testing.T) {
	t.Parallel()

	tr := prefix.NewTrie()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens := []int{i, i + 1, i + 2}
			_ = tr.Insert(tokens, cache.Key(fmt.Sprintf("k%d", i)))
			tr.LongestPrefixMatch(tokens)
		}(i)
	}
	wg.Wait()

	if tr.Len() != 16 {
		t.Errorf("Len() = %d, want 16", tr.Len())
	}
}
