// Package lifecycle provides the statekit integration for entry state tracking.
package lifecycle

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// State is a lifecycle state of a cached entry.
type State string

const (
	// StateCreated is the state before the entry is admitted to a tier.
	StateCreated State = "created"
	// StateResident is the state while the entry lives in a tier.
	StateResident State = "resident"
	// StateExpired is the state after the entry's TTL ran out.
	StateExpired State = "expired"
	// StateEvicted is the state after the policy pushed the entry out.
	StateEvicted State = "evicted"
	// StateRemoved is the terminal state once the entry is gone.
	StateRemoved State = "removed"
)

// Context carries entry state through the state machine.
type Context struct {
	Key        cache.Key
	Tier       cache.Tier
	Promotions int
	Demotions  int
}

// State IDs as StateID type for statekit.
const (
	stateCreated  statekit.StateID = statekit.StateID(StateCreated)
	stateResident statekit.StateID = statekit.StateID(StateResident)
	stateExpired  statekit.StateID = statekit.StateID(StateExpired)
	stateEvicted  statekit.StateID = statekit.StateID(StateEvicted)
	stateRemoved  statekit.StateID = statekit.StateID(StateRemoved)
)

// MovePayload carries the target tier with a promotion or demotion event.
type MovePayload struct {
	Tier cache.Tier
}

// recordMove updates the tracked tier on promotion or demotion.
func recordMove(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx
	payload, ok := event.Payload.(MovePayload)
	if !ok {
		return
	}

	switch event.Type {
	case "PROMOTE":
		c.Promotions++
	case "DEMOTE":
		c.Demotions++
	}
	c.Tier = payload.Tier
}

// guardTierChanges rejects moves that do not change the tier.
func guardTierChanges(ctx *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(MovePayload)
	if !ok {
		return false
	}
	return ctx == nil || ctx.Tier != payload.Tier
}

// NewEntryMachine creates the canonical entry lifecycle statechart.
func NewEntryMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("entry").
		WithInitial(stateCreated).
		WithContext(&Context{}).
		WithAction("recordMove", recordMove).
		WithGuard("tierChanges", guardTierChanges).
		State(stateCreated).
			On("ADMIT").Target(stateResident).
			On("REMOVE").Target(stateRemoved).
			Done().
		State(stateResident).
			On("PROMOTE").Target(stateResident).Guard("tierChanges").Do("recordMove").
			On("DEMOTE").Target(stateResident).Guard("tierChanges").Do("recordMove").
			On("EXPIRE").Target(stateExpired).
			On("EVICT").Target(stateEvicted).
			On("REMOVE").Target(stateRemoved).
			Done().
		State(stateExpired).
			On("REMOVE").Target(stateRemoved).
			Done().
		State(stateEvicted).
			On("REMOVE").Target(stateRemoved).
			Done().
		State(stateRemoved).
			Final().
			Done().
		Build()
}

// transitions lists the legal lifecycle moves.
var transitions = map[State][]State{
	StateCreated:  {StateResident, StateRemoved},
	StateResident: {StateResident, StateExpired, StateEvicted, StateRemoved},
	StateExpired:  {StateRemoved},
	StateEvicted:  {StateRemoved},
	StateRemoved:  {},
}

// CanTransition reports whether a lifecycle move is legal.
func CanTransition(from, to State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EventForTransition returns the event type for a lifecycle move.
func EventForTransition(to State) statekit.EventType {
	switch to {
	case StateResident:
		return "ADMIT"
	case StateExpired:
		return "EXPIRE"
	case StateEvicted:
		return "EVICT"
	case StateRemoved:
		return "REMOVE"
	default:
		return statekit.EventType(to)
	}
}
