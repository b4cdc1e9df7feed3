package output

import "fmt"

// State is the lifecycle state of one display's surfaces.
type State string

// Lifecycle states.
const (
	// StateUnconfigured: platform surface exists (or is being created) but
	// no size has been configured yet.
	StateUnconfigured State = "unconfigured"
	// StateReady: configured and allowed to render.
	StateReady State = "ready"
	// StateWaitingCallback: a frame was submitted; waiting for the
	// display's pacing signal before rendering again.
	StateWaitingCallback State = "waiting_callback"
	// StatePendingDestroy: the compositor closed the surface; platform
	// teardown is deferred to the next loop tick.
	StatePendingDestroy State = "pending_destroy"
	// StatePendingRecreate: platform teardown done; waiting for geometry
	// to recreate the surface.
	StatePendingRecreate State = "pending_recreate"
	// StateDefunct is a reserved terminal state for future backoff
	// escalation. No transition currently enters it.
	StateDefunct State = "defunct"
)

// legalTransitions is the full transition table. Anything not listed is
// rejected, which is what makes duplicate teardown signals harmless.
var legalTransitions = map[State][]State{
	StateUnconfigured:    {StateReady},
	StateReady:           {StateWaitingCallback, StatePendingDestroy},
	StateWaitingCallback: {StateReady, StatePendingDestroy},
	StatePendingDestroy:  {StatePendingRecreate},
	StatePendingRecreate: {StateUnconfigured},
	StateDefunct:         {},
}

// TransitionError reports an attempted illegal state transition.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal output transition %s -> %s", e.From, e.To)
}

func canTransition(from, to State) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TearingDown reports whether the state is in the teardown/rebuild branch,
// where configure and frame events must be ignored.
func (s State) TearingDown() bool {
	return s == StatePendingDestroy || s == StatePendingRecreate || s == StateDefunct
}

// Drawable reports whether the surface may be rendered to once a frame is
// available.
func (s State) Drawable() bool {
	return s == StateReady || s == StateWaitingCallback
}
