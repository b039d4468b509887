package lifecycle_test

import (
	"testing"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/lifecycle"
)

func newTracker(t *testing.T) *lifecycle.Tracker {
	t.Helper()

	tracker, err := lifecycle.NewTracker()
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return tracker
}

func TestTracker_Admit(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	tracker.Admit("k1", cache.TierFast)

	state, ok := tracker.State("k1")
	if !ok {
		t.Fatal("State() should find the tracked entry")
	}
	if state != lifecycle.StateResident {
		t.Errorf("State() = %s, want resident", state)
	}
	if tracker.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tracker.Len())
	}

	// Admitting the same key again is a no-op.
	tracker.Admit("k1", cache.TierShared)
	ctx, _ := tracker.Context("k1")
	if ctx.Tier != cache.TierFast {
		t.Errorf("Tier = %s, re-admission must not reset tracking", ctx.Tier)
	}
}

func TestTracker_PromoteAndDemote(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	tracker.Admit("k", cache.TierDurable)

	if err := tracker.Promote("k", cache.TierFast); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	ctx, ok := tracker.Context("k")
	if !ok {
		t.Fatal("Context() should find the tracked entry")
	}
	if ctx.Tier != cache.TierFast {
		t.Errorf("Tier = %s, want fast after promotion", ctx.Tier)
	}
	if ctx.Promotions != 1 {
		t.Errorf("Promotions = %d, want 1", ctx.Promotions)
	}

	if err := tracker.Demote("k", cache.TierShared); err != nil {
		t.Fatalf("Demote() error = %v", err)
	}

	ctx, _ = tracker.Context("k")
	if ctx.Tier != cache.TierShared {
		t.Errorf("Tier = %s, want shared after demotion", ctx.Tier)
	}
	if ctx.Demotions != 1 {
		t.Errorf("Demotions = %d, want 1", ctx.Demotions)
	}

	// Moving to the tier the entry already occupies changes nothing.
	if err := tracker.Promote("k", cache.TierShared); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}
	ctx, _ = tracker.Context("k")
	if ctx.Promotions != 1 {
		t.Errorf("Promotions = %d, same-tier move must be rejected by the guard", ctx.Promotions)
	}
}

func TestTracker_TerminalStates(t *testing.T) {
	t.Parallel()

	t.Run("expire then remove", func(t *testing.T) {
		t.Parallel()

		tracker := newTracker(t)
		tracker.Admit("k", cache.TierFast)

		if err := tracker.Expire("k"); err != nil {
			t.Fatalf("Expire() error = %v", err)
		}
		if state, _ := tracker.State("k"); state != lifecycle.StateExpired {
			t.Errorf("State() = %s, want expired", state)
		}

		// An expired entry cannot move tiers.
		if err := tracker.Promote("k", cache.TierShared); err == nil {
			t.Error("Promote() of an expired entry should fail")
		}

		tracker.Remove("k")
		if _, ok := tracker.State("k"); ok {
			t.Error("removed entry should no longer be tracked")
		}
	})

	t.Run("evict then remove", func(t *testing.T) {
		t.Parallel()

		tracker := newTracker(t)
		tracker.Admit("k", cache.TierFast)

		if err := tracker.Evict("k"); err != nil {
			t.Fatalf("Evict() error = %v", err)
		}
		if state, _ := tracker.State("k"); state != lifecycle.StateEvicted {
			t.Errorf("State() = %s, want evicted", state)
		}

		// An evicted entry cannot expire afterwards.
		if err := tracker.Expire("k"); err == nil {
			t.Error("Expire() of an evicted entry should fail")
		}

		tracker.Remove("k")
		if tracker.Len() != 0 {
			t.Errorf("Len() = %d, want 0", tracker.Len())
		}
	})

	t.Run("untracked keys are ignored", func(t *testing.T) {
		t.Parallel()

		tracker := newTracker(t)
		if err := tracker.Expire("ghost"); err != nil {
			t.Errorf("Expire() of untracked key error = %v", err)
		}
		tracker.Remove("ghost")
	})
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to lifecycle.State
		want     bool
	}{
		{lifecycle.StateCreated, lifecycle.StateResident, true},
		{lifecycle.StateResident, lifecycle.StateExpired, true},
		{lifecycle.StateResident, lifecycle.StateEvicted, true},
		{lifecycle.StateResident, lifecycle.StateRemoved, true},
		{lifecycle.StateExpired, lifecycle.StateRemoved, true},
		{lifecycle.StateEvicted, lifecycle.StateRemoved, true},
		{lifecycle.StateExpired, lifecycle.StateResident, false},
		{lifecycle.StateRemoved, lifecycle.StateResident, false},
		{lifecycle.StateEvicted, lifecycle.StateExpired, false},
	}

	for _, tt := range tests {
		if got := lifecycle.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
