// Package player drives playback: a single-goroutine loop that drains
// compositor events, advances the wall-clock frame schedule, decodes with
// bounded catch-up skipping, and renders to every ready output. All mutable
// playback state is confined to the loop goroutine.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/videowall/wlvideo/internal/compositor"
	"github.com/videowall/wlvideo/internal/events"
	"github.com/videowall/wlvideo/internal/gpu"
	"github.com/videowall/wlvideo/internal/metrics"
	"github.com/videowall/wlvideo/internal/output"
	"github.com/videowall/wlvideo/internal/render"
	"github.com/videowall/wlvideo/internal/video"
)

// resetFailureTicks is how many consecutive ticks with every draw failing
// it takes before the GPU context is presumed lost and rebuilt.
const resetFailureTicks = 3

// startupGrace is how long the loop waits for the compositor to announce a
// usable display before giving up.
var startupGrace = 5 * time.Second

// ErrNoUsableDisplay is returned by Run when no output ever produced a
// surface within the startup grace period.
var ErrNoUsableDisplay = errors.New("no usable display")

// Config is the playback configuration. Values may change at runtime
// through Updates.
type Config struct {
	// OutputFilter selects which displays to render to; "" or "*" selects
	// all of them.
	OutputFilter string
	Scale        video.ScaleMode
	Loop         bool
}

// errPlaybackDone is the internal signal for a non-looping stream ending.
var errPlaybackDone = errors.New("playback finished")

// Player owns the playback loop.
type Player struct {
	conn    compositor.Conn
	source  video.FrameSource
	factory render.DriverFactory
	bus     *events.Bus
	logger  *slog.Logger
	cfg     Config

	registry *output.Registry
	rctx     *render.Context
	ring     *video.SoftwareRing
	clock    *Clock
	vendor   gpu.Vendor

	pathDetermined bool
	useZeroCopy    bool

	rendererNeedsReset bool
	failedTicks        int

	updates chan Config
}

// New builds a player around an open compositor connection, a frame
// source and an already-created GPU driver. The factory rebuilds the
// driver on a full renderer reset and must target the same device.
func New(conn compositor.Conn, source video.FrameSource, driver render.Driver, factory render.DriverFactory, bus *events.Bus, logger *slog.Logger, cfg Config) (*Player, error) {
	info := source.Info()
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid stream dimensions %dx%d", info.Width, info.Height)
	}

	ring, err := video.NewSoftwareRing(info.Width, info.Height)
	if err != nil {
		return nil, err
	}

	p := &Player{
		conn:     conn,
		source:   source,
		factory:  factory,
		bus:      bus,
		logger:   logger,
		cfg:      cfg,
		registry: output.NewRegistry(logger),
		rctx:     render.New(driver, logger),
		ring:     ring,
		clock:    NewClock(FrameDurationFromRate(info.FrameRate)),
		vendor:   info.Vendor,
		updates:  make(chan Config, 1),
	}

	logger.Info("Playback configured",
		"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"frame_duration", p.clock.FrameDuration(),
		"hardware_decode", info.HardwareDecode,
		"gpu_vendor", info.Vendor,
		"loop", cfg.Loop,
		"scale", cfg.Scale)
	return p, nil
}

// FrameDurationFromRate converts a frame rate to a frame period, falling
// back to 30 fps for missing rates and clamping the result to a sane range.
func FrameDurationFromRate(fps float64) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	d := time.Duration(float64(time.Second) / fps)
	if d < time.Second/240 {
		return time.Second / 240
	}
	if d > time.Second {
		return time.Second
	}
	return d
}

// Updates returns the channel for runtime configuration changes. Changes
// are applied at the top of the next loop iteration.
func (p *Player) Updates() chan<- Config { return p.updates }

// Run executes the playback loop until the context is cancelled, the
// stream ends with looping disabled, or the compositor connection dies.
func (p *Player) Run(ctx context.Context) error {
	defer p.close()

	deadline := time.Now().Add(startupGrace)
	surfaceSeen := false

	for ctx.Err() == nil {
		if !surfaceSeen {
			surfaceSeen = p.anySurface()
			if !surfaceSeen && time.Now().After(deadline) {
				return ErrNoUsableDisplay
			}
		}

		select {
		case cfg := <-p.updates:
			p.applyConfig(cfg)
		default:
		}

		if p.rendererNeedsReset {
			if err := p.resetRenderer(); err != nil {
				p.logger.Error("Renderer reset failed, will retry", "error", err)
			}
		}

		p.processLifecycle()

		timeout := p.clock.WaitTimeout(time.Now(), p.registry.AnyReady())
		evs, err := p.conn.Drain(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("compositor connection lost: %w", err)
		}
		for _, ev := range evs {
			p.handleEvent(ev)
		}

		if err := p.tick(time.Now()); err != nil {
			if errors.Is(err, errPlaybackDone) {
				p.logger.Info("End of stream reached")
				return nil
			}
			return err
		}
	}
	return nil
}

func (p *Player) applyConfig(cfg Config) {
	if cfg == p.cfg {
		return
	}
	p.logger.Info("Applying configuration update",
		"output", cfg.OutputFilter, "scale", cfg.Scale, "loop", cfg.Loop)
	p.cfg = cfg
}

// tick runs the decode and render phase of one iteration.
func (p *Player) tick(now time.Time) error {
	if !p.anyConfigured() {
		return nil
	}
	if !p.clock.Started() {
		p.clock.Start(now)
	}

	target := p.clock.TargetFrame(now)
	if target <= p.clock.Displayed() {
		return nil
	}

	frame, skipped, err := p.decodeCatchUp(now, target)
	if err != nil {
		return err
	}
	if skipped > 0 {
		p.logger.Debug("Skipped frames to catch up", "count", skipped)
		p.bus.Publish(events.FramesSkippedEvent{Count: skipped})
	}

	// When even the bounded skip could not close the gap, jump instead of
	// thrashing through endless catch-up decodes.
	if behind := p.clock.Behind(now); behind > ResetThreshold {
		p.clock.Rebase(now)
		p.logger.Warn("Decode fell behind, rebasing clock", "frames_behind", behind)
		p.bus.Publish(events.ClockRebaseEvent{Behind: behind})
	}

	if frame == nil {
		return nil
	}
	p.renderToOutputs(frame)
	frame.Release()

	s := p.rctx.Stats()
	metrics.SetRendererStats(s.CacheHits, s.CacheMisses, s.CacheEntries, s.ZeroCopyFrames, s.SoftwareFrames)
	return nil
}

// decodeCatchUp decodes up to MaxSkip frames toward target, releasing every
// frame except the last. Returns the frame to render and how many were
// discarded.
func (p *Player) decodeCatchUp(now time.Time, target int64) (*video.Frame, int, error) {
	toDecode := target - p.clock.Displayed()
	if toDecode > MaxSkip {
		toDecode = MaxSkip
	}

	var frame *video.Frame
	skipped := 0
	for i := int64(0); i < toDecode; i++ {
		f, err := p.source.NextFrame(p.wantSoftware())
		if errors.Is(err, video.ErrEndOfStream) {
			if !p.cfg.Loop {
				frame.Release()
				return nil, skipped, errPlaybackDone
			}
			f, err = p.restartStream(now)
			if err != nil {
				frame.Release()
				return nil, skipped, err
			}
			if frame != nil {
				frame.Release()
				skipped++
			}
			frame = f
			p.clock.Advance()
			break
		}
		if err != nil {
			frame.Release()
			return nil, skipped, fmt.Errorf("decode: %w", err)
		}
		if frame != nil {
			frame.Release()
			skipped++
		}
		frame = f
		p.clock.Advance()
	}
	return frame, skipped, nil
}

// restartStream seeks to the start for a loop restart and decodes the first
// frame of the new pass. Cached imports reference decode surfaces about to
// be recycled, so the cache is dropped before decoding resumes.
func (p *Player) restartStream(now time.Time) (*video.Frame, error) {
	if err := p.source.SeekStart(); err != nil {
		return nil, fmt.Errorf("seek to start: %w", err)
	}
	p.rctx.ClearCache()
	p.clock.Restart()
	p.clock.Start(now)
	p.logger.Debug("Looping back to start")
	p.bus.Publish(events.PlaybackLoopedEvent{})

	f, err := p.source.NextFrame(p.wantSoftware())
	if err != nil {
		return nil, fmt.Errorf("decode after loop restart: %w", err)
	}
	return f, nil
}

// wantSoftware reports whether decode should stage software pixels for the
// next frame. Before the render path is determined both representations
// are needed; afterwards only the losing path is dropped. Tiled layouts on
// NVIDIA do not import, so the software copy is kept there regardless.
func (p *Player) wantSoftware() bool {
	return !p.pathDetermined || !p.useZeroCopy || p.vendor == gpu.VendorNVIDIA
}

// renderToOutputs draws the frame on every output currently allowed to
// render. Per-output failure tears that output down for recreation without
// touching the others.
func (p *Player) renderToOutputs(frame *video.Frame) {
	attempted, rendered := false, false

	for _, s := range p.registry.All() {
		if s.State() != output.StateReady || !s.MatchesFilter(p.cfg.OutputFilter) {
			continue
		}
		if !p.rctx.HasSurface(s.ID) {
			continue
		}
		attempted = true

		tryZeroCopy := frame.Hardware() && (!p.pathDetermined || p.useZeroCopy)
		zeroCopy, err := p.rctx.Draw(s.ID, s.ConfiguredWidth, s.ConfiguredHeight, frame, p.ring, p.cfg.Scale, tryZeroCopy)
		if err != nil {
			p.logger.Warn("Draw failed, recreating output surface",
				"output", s.Name, "error", err)
			p.rctx.DestroyOutputSurface(s.ID)
			p.transition(s, s.MarkClosed)
			continue
		}
		rendered = true

		if err := p.conn.RequestFrame(s.ID); err != nil {
			p.logger.Warn("Frame callback request failed", "output", s.Name, "error", err)
		} else {
			p.transition(s, s.MarkAwaitingFrame)
		}
		s.FramesRendered++
		p.bus.Publish(events.FrameRenderedEvent{Output: s.Name, ZeroCopy: zeroCopy})

		if !p.pathDetermined {
			p.pathDetermined = true
			p.useZeroCopy = zeroCopy
			p.source.DeclareZeroCopyResult(zeroCopy)
			p.logger.Info("Render path determined", "zero_copy", zeroCopy)
			p.bus.Publish(events.RenderPathEvent{ZeroCopy: zeroCopy})
		}
	}

	switch {
	case rendered:
		p.failedTicks = 0
	case attempted:
		p.failedTicks++
		if p.failedTicks >= resetFailureTicks {
			p.logger.Error("Every draw failed repeatedly, scheduling renderer reset")
			p.rendererNeedsReset = true
			p.failedTicks = 0
		}
	}
}

// processLifecycle advances outputs through the teardown/rebuild branch,
// one step per tick, and self-heals missing GPU surfaces.
func (p *Player) processLifecycle() {
	for _, s := range p.registry.All() {
		switch s.State() {
		case output.StatePendingDestroy:
			// GPU side first, then the platform surface. Deferred to here
			// so a surface is never destroyed from within its own event.
			p.rctx.DestroyOutputSurface(s.ID)
			if s.HasPlatformSurface {
				if err := p.conn.DestroySurface(s.ID); err != nil {
					p.logger.Warn("Platform surface destroy failed",
						"output", s.Name, "error", err)
				}
			}
			p.transition(s, s.BeginRecreate)

		case output.StatePendingRecreate:
			if !s.GeometryKnown() || !s.MatchesFilter(p.cfg.OutputFilter) {
				continue
			}
			if err := p.conn.CreateSurface(s.ID); err != nil {
				p.logger.Warn("Platform surface recreate failed, retrying",
					"output", s.Name, "error", err)
				continue
			}
			if err := p.rctx.CreateOutputSurface(s.ID, s.Width, s.Height); err != nil {
				p.logger.Warn("GPU surface recreate failed, retrying",
					"output", s.Name, "error", err)
				if derr := p.conn.DestroySurface(s.ID); derr != nil {
					p.logger.Warn("Platform surface destroy failed",
						"output", s.Name, "error", derr)
				}
				continue
			}
			p.transition(s, s.Recreated)
			s.HasGPUSurface = true

		case output.StateReady, output.StateWaitingCallback:
			if s.HasPlatformSurface && s.ConfiguredWidth > 0 && !p.rctx.HasSurface(s.ID) {
				if err := p.rctx.CreateOutputSurface(s.ID, s.ConfiguredWidth, s.ConfiguredHeight); err != nil {
					p.logger.Warn("GPU surface reattach failed, recreating output",
						"output", s.Name, "error", err)
					p.transition(s, s.MarkClosed)
					continue
				}
				s.HasGPUSurface = true
			}
		}
	}
}

// handleEvent applies one drained compositor event.
func (p *Player) handleEvent(ev compositor.Event) {
	switch e := ev.(type) {
	case compositor.OutputAdded:
		p.registry.Add(e.Output)

	case compositor.OutputGeometry:
		s := p.registry.Get(e.Output)
		if s == nil {
			s = p.registry.Add(e.Output)
		}
		s.Name = e.Name
		s.Width = e.Width
		s.Height = e.Height
		if !s.HasPlatformSurface && s.State() == output.StateUnconfigured &&
			s.GeometryKnown() && s.MatchesFilter(p.cfg.OutputFilter) {
			if err := p.conn.CreateSurface(e.Output); err != nil {
				p.logger.Warn("Surface creation failed", "output", s.Name, "error", err)
				return
			}
			s.HasPlatformSurface = true
			p.logger.Info("Surface created", "output", s.Name,
				"mode", fmt.Sprintf("%dx%d", e.Width, e.Height))
		}

	case compositor.OutputRemoved:
		if s := p.registry.Remove(e.Output); s != nil {
			p.rctx.DestroyOutputSurface(e.Output)
		}

	case compositor.SizeConfigured:
		s := p.registry.Get(e.Output)
		if s == nil || !s.Configure(e.Width, e.Height) {
			return
		}
		p.logger.Debug("Surface configured", "output", s.Name,
			"size", fmt.Sprintf("%dx%d", e.Width, e.Height))
		if p.rctx.HasSurface(e.Output) {
			if err := p.rctx.ResizeOutputSurface(e.Output, e.Width, e.Height); err != nil {
				p.logger.Warn("GPU surface resize failed", "output", s.Name, "error", err)
				p.rctx.DestroyOutputSurface(e.Output)
			}
		} else if err := p.rctx.CreateOutputSurface(e.Output, e.Width, e.Height); err != nil {
			p.logger.Warn("GPU surface creation failed", "output", s.Name, "error", err)
		} else {
			s.HasGPUSurface = true
		}
		p.bus.Publish(events.OutputStateEvent{
			Output: s.Name, From: string(output.StateUnconfigured), To: string(s.State()),
		})

	case compositor.SurfaceClosed:
		s := p.registry.Get(e.Output)
		if s == nil {
			return
		}
		// Destroying the GPU surface immediately is safe; the platform
		// surface destruction is deferred to the lifecycle pass.
		p.rctx.DestroyOutputSurface(e.Output)
		p.transition(s, s.MarkClosed)

	case compositor.FrameDone:
		if s := p.registry.Get(e.Output); s != nil {
			s.FrameConsumed()
		}
	}
}

// transition applies a state transition and publishes the change. Illegal
// transitions (duplicate teardown signals, orphaned callbacks) are logged
// at debug and dropped.
func (p *Player) transition(s *output.Surface, fn func() error) {
	from := s.State()
	if err := fn(); err != nil {
		p.logger.Debug("Ignoring state transition", "output", s.Name, "error", err)
		return
	}
	p.bus.Publish(events.OutputStateEvent{
		Output: s.Name, From: string(from), To: string(s.State()),
	})
}

// resetRenderer rebuilds the whole GPU context after repeated context
// loss: new driver, empty import cache, fresh zero-copy probe, and a
// generation bump so stale import keys can never match again. Surviving
// platform surfaces get new GPU surfaces attached.
func (p *Player) resetRenderer() error {
	p.logger.Warn("Resetting renderer")

	if err := p.rctx.Close(); err != nil {
		p.logger.Warn("Old GPU context close failed", "error", err)
	}

	driver, err := p.factory()
	if err != nil {
		return fmt.Errorf("rebuild gpu context: %w", err)
	}
	p.rctx = render.New(driver, p.logger)
	p.rendererNeedsReset = false

	p.source.BumpGeneration()
	p.pathDetermined = false
	p.useZeroCopy = false

	for _, s := range p.registry.All() {
		s.HasGPUSurface = false
		if !s.HasPlatformSurface || !s.State().Drawable() || s.ConfiguredWidth <= 0 {
			continue
		}
		if err := p.rctx.CreateOutputSurface(s.ID, s.ConfiguredWidth, s.ConfiguredHeight); err != nil {
			p.logger.Warn("GPU surface reattach failed after reset",
				"output", s.Name, "error", err)
			p.transition(s, s.MarkClosed)
			continue
		}
		s.HasGPUSurface = true
	}

	p.bus.Publish(events.RendererResetEvent{})
	return nil
}

func (p *Player) anySurface() bool {
	for _, s := range p.registry.All() {
		if s.HasPlatformSurface {
			return true
		}
	}
	return false
}

func (p *Player) anyConfigured() bool {
	for _, s := range p.registry.All() {
		if s.State().Drawable() && s.ConfiguredWidth > 0 && p.rctx.HasSurface(s.ID) {
			return true
		}
	}
	return false
}

// Registry exposes the display records for status reporting.
func (p *Player) Registry() *output.Registry { return p.registry }

func (p *Player) close() {
	for _, s := range p.registry.All() {
		if s.FramesRendered > 0 {
			p.logger.Info("Output statistics", "output", s.Name, "frames_rendered", s.FramesRendered)
		}
	}
	if err := p.rctx.Close(); err != nil {
		p.logger.Warn("GPU context close failed", "error", err)
	}
	for _, s := range p.registry.All() {
		if s.HasPlatformSurface {
			if err := p.conn.DestroySurface(s.ID); err != nil {
				p.logger.Debug("Platform surface destroy failed", "output", s.Name, "error", err)
			}
		}
	}
	if err := p.source.Close(); err != nil {
		p.logger.Warn("Frame source close failed", "error", err)
	}
}
