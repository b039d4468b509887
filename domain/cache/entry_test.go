package cache_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

func TestEntry_Size(t *testing.T) {
	t.Parallel()

	entry := &cache.Entry{
		Key:         cache.Key("abcd"),
		Payload:     []byte("hello"),
		Embedding:   []float32{0.1, 0.2, 0.3},
		TokenPrefix: []int{1, 2},
		Metadata:    map[string]string{"model": "m1"},
	}

	want := int64(4 + 5 + 3*4 + 2*8 + 5 + 2)
	if got := entry.Size(); got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestEntry_SizeEmpty(t *testing.T) {
	t.Parallel()

	entry := &cache.Entry{}
	if got := entry.Size(); got != 0 {
		t.Errorf("Size() = %d, want 0", got)
	}
}

func TestEntry_Expired(t *testing.T) {
	t.Parallel()

	created := time.Now()

	tests := []struct {
		name string
		ttl  time.Duration
		at   time.Time
		want bool
	}{
		{"zero TTL never expires", 0, created.Add(240 * time.Hour), false},
		{"negative TTL never expires", -time.Second, created.Add(time.Hour), false},
		{"before deadline", time.Minute, created.Add(30 * time.Second), false},
		{"at deadline", time.Minute, created.Add(time.Minute), false},
		{"past deadline", time.Minute, created.Add(time.Minute + time.Nanosecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry := &cache.Entry{CreatedAt: created, TTL: tt.ttl}
			if got := entry.Expired(tt.at); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Touch(t *testing.T) {
	t.Parallel()

	entry := &cache.Entry{}
	now := time.Now()

	entry.Touch(now)
	entry.Touch(now.Add(time.Second))

	if entry.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", entry.AccessCount)
	}
	if !entry.LastAccessAt.Equal(now.Add(time.Second)) {
		t.Errorf("LastAccessAt = %v, want %v", entry.LastAccessAt, now.Add(time.Second))
	}
}

func TestEntry_CloneIsDeep(t *testing.T) {
	t.Parallel()

	entry := &cache.Entry{
		Key:         cache.Key("k"),
		Payload:     []byte("payload"),
		Embedding:   []float32{0.5},
		TokenPrefix: []int{7},
		Metadata:    map[string]string{"a": "b"},
	}

	clone := entry.Clone()
	clone.Payload[0] = 'X'
	clone.Embedding[0] = 9
	clone.TokenPrefix[0] = 9
	clone.Metadata["a"] = "mutated"

	if entry.Payload[0] != 'p' {
		t.Error("mutating clone payload changed the original")
	}
	if entry.Embedding[0] != 0.5 {
		t.Error("mutating clone embedding changed the original")
	}
	if entry.TokenPrefix[0] != 7 {
		t.Error("mutating clone token prefix changed the original")
	}
	if entry.Metadata["a"] != "b" {
		t.Error("mutating clone metadata changed the original")
	}
}

func TestClampPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want int
	}{
		{-3, cache.MinPriority},
		{0, cache.MinPriority},
		{1, 1},
		{3, 3},
		{5, 5},
		{9, cache.MaxPriority},
	}

	for _, tt := range tests {
		if got := cache.ClampPriority(tt.in); got != tt.want {
			t.Errorf("ClampPriority(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
