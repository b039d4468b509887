package lifecycle

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// tracked pairs an interpreter with its context.
type tracked struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// Tracker runs one lifecycle interpreter per tracked entry. Only entries
// resident in the fast tier are tracked, so the interpreter count stays
// bounded by the fast tier budget.
type Tracker struct {
	machine *statekit.MachineConfig[*Context]

	mu      sync.Mutex
	entries map[cache.Key]*tracked
}

// NewTracker creates a tracker with a fresh entry machine.
func NewTracker() (*Tracker, error) {
	machine, err := NewEntryMachine()
	if err != nil {
		return nil, err
	}
	return &Tracker{
		machine: machine,
		entries: make(map[cache.Key]*tracked),
	}, nil
}

// Admit starts tracking an entry as resident in the given tier.
func (t *Tracker) Admit(key cache.Key, tier cache.Tier) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; exists {
		return
	}

	ctx := &Context{Key: key, Tier: tier}
	interp := statekit.NewInterpreter(t.machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()
	interp.Send(statekit.Event{Type: "ADMIT"})

	t.entries[key] = &tracked{interp: interp, ctx: ctx}
}

// move sends a tier move event for a tracked entry.
func (t *Tracker) move(key cache.Key, event statekit.EventType, tier cache.Tier) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.entries[key]
	if !exists {
		return nil
	}
	if State(tr.interp.State().Value) != StateResident {
		return fmt.Errorf("entry %s is %s, cannot move tiers", key, tr.interp.State().Value)
	}

	tr.interp.Send(statekit.Event{Type: event, Payload: MovePayload{Tier: tier}})
	return nil
}

// Promote records a promotion of a tracked entry into a tier.
func (t *Tracker) Promote(key cache.Key, tier cache.Tier) error {
	return t.move(key, "PROMOTE", tier)
}

// Demote records a demotion of a tracked entry into a tier.
func (t *Tracker) Demote(key cache.Key, tier cache.Tier) error {
	return t.move(key, "DEMOTE", tier)
}

// terminal sends a terminal-ward event for a tracked entry.
func (t *Tracker) terminal(key cache.Key, to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.entries[key]
	if !exists {
		return nil
	}

	from := State(tr.interp.State().Value)
	if !CanTransition(from, to) {
		return fmt.Errorf("entry %s cannot move from %s to %s", key, from, to)
	}

	tr.interp.Send(statekit.Event{Type: EventForTransition(to)})
	return nil
}

// Expire marks a tracked entry as expired.
func (t *Tracker) Expire(key cache.Key) error {
	return t.terminal(key, StateExpired)
}

// Evict marks a tracked entry as evicted.
func (t *Tracker) Evict(key cache.Key) error {
	return t.terminal(key, StateEvicted)
}

// Remove finishes an entry's lifecycle and drops its interpreter.
func (t *Tracker) Remove(key cache.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.entries[key]
	if !exists {
		return
	}

	from := State(tr.interp.State().Value)
	if CanTransition(from, StateRemoved) {
		tr.interp.Send(statekit.Event{Type: "REMOVE"})
	}
	tr.interp.Stop()
	delete(t.entries, key)
}

// State returns the lifecycle state of a tracked entry.
func (t *Tracker) State(key cache.Key) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.entries[key]
	if !exists {
		return "", false
	}
	return State(tr.interp.State().Value), true
}

// Context returns a copy of the tracked entry's context.
func (t *Tracker) Context(key cache.Key) (Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, exists := t.entries[key]
	if !exists || tr.ctx == nil {
		return Context{}, false
	}
	return *tr.ctx, true
}

// Len returns the number of tracked entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
