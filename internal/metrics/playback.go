// Package metrics provides Prometheus metrics for the playback pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wlvideo",
		Subsystem: "playback",
		Name:      "frames_rendered_total",
		Help:      "Frames drawn, by output and render path",
	}, []string{"output", "path"})

	framesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wlvideo",
		Subsystem: "playback",
		Name:      "frames_skipped_total",
		Help:      "Frames decoded and discarded to catch up with the clock",
	})

	clockRebases = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wlvideo",
		Subsystem: "playback",
		Name:      "clock_rebases_total",
		Help:      "Times the playback clock was rebased after a decode stall",
	})

	playbackLoops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wlvideo",
		Subsystem: "playback",
		Name:      "loops_total",
		Help:      "Loop restarts at end of stream",
	})

	rendererResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "context_resets_total",
		Help:      "Full GPU context rebuilds",
	})

	zeroCopyActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "zero_copy_active",
		Help:      "Whether the zero-copy render path is in use (1) or the software fallback (0)",
	})

	outputState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "output",
		Name:      "state",
		Help:      "Current lifecycle state per output (1 for the active state)",
	}, []string{"output", "state"})

	cacheHits = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "import_cache_hits_total",
		Help:      "Buffer import cache hits since context creation",
	})

	cacheMisses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "import_cache_misses_total",
		Help:      "Buffer import cache misses since context creation",
	})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "import_cache_entries",
		Help:      "Occupied buffer import cache slots",
	})

	zeroCopyFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "zero_copy_frames",
		Help:      "Frames presented via imported buffers since context creation",
	})

	softwareFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wlvideo",
		Subsystem: "render",
		Name:      "software_frames",
		Help:      "Frames presented via texture upload since context creation",
	})
)

// SetRendererStats publishes a renderer counter snapshot.
func SetRendererStats(hits, misses uint64, entries int, zeroCopy, software uint64) {
	cacheHits.Set(float64(hits))
	cacheMisses.Set(float64(misses))
	cacheEntries.Set(float64(entries))
	zeroCopyFrames.Set(float64(zeroCopy))
	softwareFrames.Set(float64(software))
}
