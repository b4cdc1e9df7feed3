// Package output tracks one record per physical display and owns the
// surface lifecycle state machine. Records are addressed by the stable
// platform output handle; GPU-facing resources are deliberately NOT stored
// here — the renderer context owns its surface map keyed by the same
// handle, so a display removal can never leave a dangling GPU reference
// inside an event handler.
package output

import (
	"log/slog"
	"sort"

	"github.com/videowall/wlvideo/internal/compositor"
)

// Surface is the per-display record. State is mutated only through the
// transition methods below; all of them run on the playback loop goroutine.
type Surface struct {
	ID   compositor.OutputID
	Name string

	// Display geometry from the platform registry.
	Width  int
	Height int

	// Last configured surface size, used to suppress duplicate configures.
	ConfiguredWidth  int
	ConfiguredHeight int

	// HasPlatformSurface tracks platform-side surface existence;
	// HasGPUSurface mirrors whether the renderer currently holds a GPU
	// surface for this output (the handle itself lives in the renderer).
	HasPlatformSurface bool
	HasGPUSurface      bool

	FramesRendered uint64

	state State
}

// State returns the current lifecycle state.
func (s *Surface) State() State { return s.state }

// transition applies a state change, enforcing the transition table.
func (s *Surface) transition(to State) error {
	if !canTransition(s.state, to) {
		return &TransitionError{From: s.state, To: to}
	}
	s.state = to
	return nil
}

// Configure records a compositor-assigned surface size. Returns whether the
// event was meaningful (first configure or a real size change); duplicates
// and configures during teardown are ignored.
func (s *Surface) Configure(width, height int) bool {
	if s.state.TearingDown() {
		return false
	}

	first := s.state == StateUnconfigured
	changed := s.ConfiguredWidth != width || s.ConfiguredHeight != height
	if !first && !changed {
		return false
	}

	s.ConfiguredWidth = width
	s.ConfiguredHeight = height
	if first {
		// Unconfigured -> Ready is always legal.
		_ = s.transition(StateReady)
	}
	return true
}

// MarkClosed handles a compositor-forced surface close. Returns an error if
// the output is already tearing down (duplicate signal, ignored by callers).
func (s *Surface) MarkClosed() error {
	return s.transition(StatePendingDestroy)
}

// BeginRecreate records completed platform teardown and clears the size
// cache so the next configure is treated as the first.
func (s *Surface) BeginRecreate() error {
	if err := s.transition(StatePendingRecreate); err != nil {
		return err
	}
	s.HasPlatformSurface = false
	s.HasGPUSurface = false
	s.ConfiguredWidth = 0
	s.ConfiguredHeight = 0
	return nil
}

// Recreated records a freshly created platform surface awaiting its first
// configure.
func (s *Surface) Recreated() error {
	if err := s.transition(StateUnconfigured); err != nil {
		return err
	}
	s.HasPlatformSurface = true
	s.ConfiguredWidth = 0
	s.ConfiguredHeight = 0
	return nil
}

// MarkAwaitingFrame throttles rendering to the display's pacing signal.
func (s *Surface) MarkAwaitingFrame() error {
	return s.transition(StateWaitingCallback)
}

// FrameConsumed handles the pacing signal. Signals arriving in any other
// state (orphaned callbacks after a close) are ignored.
func (s *Surface) FrameConsumed() {
	if s.state == StateWaitingCallback {
		_ = s.transition(StateReady)
	}
}

// GeometryKnown reports whether enough display information exists to
// recreate a surface.
func (s *Surface) GeometryKnown() bool {
	return s.Width > 0 && s.Height > 0 && s.Name != ""
}

// MatchesFilter reports whether this output is selected by the target
// filter ("" and "*" select everything).
func (s *Surface) MatchesFilter(filter string) bool {
	return filter == "" || filter == "*" || s.Name == filter
}

// Registry is the arena of display records.
type Registry struct {
	byID   map[compositor.OutputID]*Surface
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byID:   make(map[compositor.OutputID]*Surface),
		logger: logger,
	}
}

// Add registers a newly discovered display.
func (r *Registry) Add(id compositor.OutputID) *Surface {
	if s, ok := r.byID[id]; ok {
		return s
	}
	s := &Surface{ID: id, state: StateUnconfigured}
	r.byID[id] = s
	r.logger.Debug("Output registered", "output_id", id)
	return s
}

// Get returns the record for a display, or nil.
func (r *Registry) Get(id compositor.OutputID) *Surface {
	return r.byID[id]
}

// Remove drops a display record, returning it for resource cleanup.
func (r *Registry) Remove(id compositor.OutputID) *Surface {
	s := r.byID[id]
	if s != nil {
		delete(r.byID, id)
		r.logger.Info("Output removed", "output", s.Name, "output_id", id)
	}
	return s
}

// All returns every record in stable ID order.
func (r *Registry) All() []*Surface {
	out := make([]*Surface, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AnyReady reports whether at least one output is in the Ready state.
func (r *Registry) AnyReady() bool {
	for _, s := range r.byID {
		if s.state == StateReady {
			return true
		}
	}
	return false
}

// Len returns the number of tracked displays.
func (r *Registry) Len() int { return len(r.byID) }
