package events

// Event type constants for kelindar/event.
const (
	TypeFrameRendered uint32 = iota + 1
	TypeFramesSkipped
	TypeClockRebase
	TypeRenderPath
	TypePlaybackLooped
	TypeOutputState
	TypeRendererReset
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FrameRenderedEvent is published for every frame drawn to an output.
type FrameRenderedEvent struct {
	Output   string
	ZeroCopy bool
}

// Type returns the event type identifier for FrameRenderedEvent.
func (e FrameRenderedEvent) Type() uint32 { return TypeFrameRendered }

// FramesSkippedEvent reports frames decoded and discarded to catch up with
// the playback clock.
type FramesSkippedEvent struct {
	Count int
}

// Type returns the event type identifier for FramesSkippedEvent.
func (e FramesSkippedEvent) Type() uint32 { return TypeFramesSkipped }

// ClockRebaseEvent reports the clock being rebased after decode fell too
// far behind to catch up by skipping.
type ClockRebaseEvent struct {
	Behind int64 // frames behind at rebase time
}

// Type returns the event type identifier for ClockRebaseEvent.
func (e ClockRebaseEvent) Type() uint32 { return TypeClockRebase }

// RenderPathEvent reports the one-shot render path determination.
type RenderPathEvent struct {
	ZeroCopy bool
}

// Type returns the event type identifier for RenderPathEvent.
func (e RenderPathEvent) Type() uint32 { return TypeRenderPath }

// PlaybackLoopedEvent reports a loop restart at end of stream.
type PlaybackLoopedEvent struct{}

// Type returns the event type identifier for PlaybackLoopedEvent.
func (e PlaybackLoopedEvent) Type() uint32 { return TypePlaybackLooped }

// OutputStateEvent reports a surface lifecycle transition.
type OutputStateEvent struct {
	Output string
	From   string
	To     string
}

// Type returns the event type identifier for OutputStateEvent.
func (e OutputStateEvent) Type() uint32 { return TypeOutputState }

// RendererResetEvent reports a full GPU context rebuild.
type RendererResetEvent struct{}

// Type returns the event type identifier for RendererResetEvent.
func (e RendererResetEvent) Type() uint32 { return TypeRendererReset }
