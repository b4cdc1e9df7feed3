package metrics

import (
	"github.com/videowall/wlvideo/internal/events"
)

// Recorder bridges playback bus events into the Prometheus registry. The
// playback loop stays unaware of metrics; it only publishes events.
type Recorder struct {
	unsubs []func()
}

// NewRecorder subscribes to the bus. Call Close to detach.
func NewRecorder(bus *events.Bus) *Recorder {
	r := &Recorder{}
	r.unsubs = append(r.unsubs,
		bus.Subscribe(func(e events.FrameRenderedEvent) {
			path := "software"
			if e.ZeroCopy {
				path = "zero_copy"
			}
			framesRendered.WithLabelValues(e.Output, path).Inc()
		}),
		bus.Subscribe(func(e events.FramesSkippedEvent) {
			framesSkipped.Add(float64(e.Count))
		}),
		bus.Subscribe(func(e events.ClockRebaseEvent) {
			clockRebases.Inc()
		}),
		bus.Subscribe(func(e events.RenderPathEvent) {
			if e.ZeroCopy {
				zeroCopyActive.Set(1)
			} else {
				zeroCopyActive.Set(0)
			}
		}),
		bus.Subscribe(func(e events.PlaybackLoopedEvent) {
			playbackLoops.Inc()
		}),
		bus.Subscribe(func(e events.OutputStateEvent) {
			outputState.WithLabelValues(e.Output, e.From).Set(0)
			outputState.WithLabelValues(e.Output, e.To).Set(1)
		}),
		bus.Subscribe(func(e events.RendererResetEvent) {
			rendererResets.Inc()
		}),
	)
	return r
}

// Close detaches every subscription.
func (r *Recorder) Close() {
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}
