// Package events provides the in-process event bus for playback telemetry.
// The playback loop publishes; metrics and other reactive subsystems
// subscribe.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(FrameRenderedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event's generic Publish needs the concrete type.
	switch e := ev.(type) {
	case FrameRenderedEvent:
		event.Publish(b.dispatcher, e)
	case FramesSkippedEvent:
		event.Publish(b.dispatcher, e)
	case ClockRebaseEvent:
		event.Publish(b.dispatcher, e)
	case RenderPathEvent:
		event.Publish(b.dispatcher, e)
	case PlaybackLoopedEvent:
		event.Publish(b.dispatcher, e)
	case OutputStateEvent:
		event.Publish(b.dispatcher, e)
	case RendererResetEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes a typed handler; the handler's parameter type selects
// the events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e FrameRenderedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FrameRenderedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FramesSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClockRebaseEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RenderPathEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PlaybackLoopedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OutputStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RendererResetEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
