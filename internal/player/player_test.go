package player

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/videowall/wlvideo/internal/compositor"
	"github.com/videowall/wlvideo/internal/events"
	"github.com/videowall/wlvideo/internal/gpu"
	"github.com/videowall/wlvideo/internal/output"
	"github.com/videowall/wlvideo/internal/render"
	"github.com/videowall/wlvideo/internal/video"
)

// fakeConn queues event batches for Drain and records requests.
type fakeConn struct {
	batches   [][]compositor.Event
	created   []compositor.OutputID
	destroyed []compositor.OutputID
	frameReqs []compositor.OutputID
	createErr error
}

func (c *fakeConn) Drain(_ context.Context, _ time.Duration) ([]compositor.Event, error) {
	if len(c.batches) == 0 {
		return nil, nil
	}
	b := c.batches[0]
	c.batches = c.batches[1:]
	return b, nil
}

func (c *fakeConn) CreateSurface(id compositor.OutputID) error {
	if c.createErr != nil {
		return c.createErr
	}
	c.created = append(c.created, id)
	return nil
}

func (c *fakeConn) DestroySurface(id compositor.OutputID) error {
	c.destroyed = append(c.destroyed, id)
	return nil
}

func (c *fakeConn) RequestFrame(id compositor.OutputID) error {
	c.frameReqs = append(c.frameReqs, id)
	return nil
}

func (c *fakeConn) Close() error { return nil }

// fakeSource hands out hardware frames with tracked descriptors.
type fakeSource struct {
	total      int // frames before end of stream, -1 for endless
	decoded    int
	position   int
	seeks      int
	generation uint64
	vendor     gpu.Vendor

	declared     bool
	declaredZC   bool
	wantSWCalls  []bool
	closeCounts  map[int]int
	nextFD       int
	closed       bool
}

func newFakeSource(total int) *fakeSource {
	return &fakeSource{total: total, generation: 1, closeCounts: make(map[int]int)}
}

func (s *fakeSource) NextFrame(wantSoftware bool) (*video.Frame, error) {
	s.wantSWCalls = append(s.wantSWCalls, wantSoftware)
	if s.total >= 0 && s.position >= s.total {
		return nil, video.ErrEndOfStream
	}
	s.position++
	s.decoded++

	d := video.NewGpuBufferDescriptor(func(fd int) error {
		s.closeCounts[fd]++
		return nil
	})
	d.PlaneCount = 2
	s.nextFD++
	d.FDs[0] = s.nextFD
	s.nextFD++
	d.FDs[1] = s.nextFD
	d.Modifiers[0], d.Modifiers[1] = video.ModifierLinear, video.ModifierLinear

	f := &video.Frame{
		Kind:       video.FrameHardware,
		Width:      64,
		Height:     64,
		SurfaceID:  uint64(s.decoded % 8),
		Generation: s.generation,
		Desc:       d,
	}
	if wantSoftware {
		f.SoftwareValid = true
	}
	return f, nil
}

func (s *fakeSource) SeekStart() error {
	s.seeks++
	s.position = 0
	s.generation += video.GenerationSeekGap
	return nil
}

func (s *fakeSource) CloseDescriptor(d *video.GpuBufferDescriptor) error { return d.Close() }

func (s *fakeSource) DeclareZeroCopyResult(works bool) {
	s.declared = true
	s.declaredZC = works
}

func (s *fakeSource) BumpGeneration() { s.generation++ }

func (s *fakeSource) Info() video.StreamInfo {
	return video.StreamInfo{Width: 64, Height: 64, FrameRate: 30, HardwareDecode: true, Vendor: s.vendor}
}

func (s *fakeSource) Close() error { s.closed = true; return nil }

// fakeDriver is the minimal GPU backend for loop tests.
type fakeDriver struct {
	importErr   error
	nextSurface render.SurfaceHandle
	nextImage   render.ImageHandle
	imports     int
	destroyed   int
	drawErr     error
}

func (d *fakeDriver) Capabilities() render.Capabilities {
	return render.Capabilities{BufferImport: true, Modifiers: true, YUVHints: true, RGTexture: true}
}
func (d *fakeDriver) Name() string { return "fake" }
func (d *fakeDriver) CreateSurface(compositor.OutputID, int, int) (render.SurfaceHandle, error) {
	d.nextSurface++
	return d.nextSurface, nil
}
func (d *fakeDriver) ResizeSurface(render.SurfaceHandle, int, int) error { return nil }
func (d *fakeDriver) DestroySurface(render.SurfaceHandle) error          { return nil }
func (d *fakeDriver) ImportImage(render.ImportAttrs) (render.ImageHandle, error) {
	d.imports++
	if d.importErr != nil {
		return render.NoImage, d.importErr
	}
	d.nextImage++
	return d.nextImage, nil
}
func (d *fakeDriver) DestroyImage(render.ImageHandle) error             { d.destroyed++; return nil }
func (d *fakeDriver) AllocTexture(render.TextureTarget, render.TextureFormat, int, int) error {
	return nil
}
func (d *fakeDriver) UploadTexture(render.TextureTarget, int, int, int, int, []byte) error {
	return nil
}
func (d *fakeDriver) BeginFrame(render.SurfaceHandle, int, int) error { return nil }
func (d *fakeDriver) DrawImported(render.SurfaceHandle, render.ImageHandle, render.Transform) error {
	return d.drawErr
}
func (d *fakeDriver) DrawSoftware(render.SurfaceHandle, render.Transform, video.Colorspace, video.ColorRange) error {
	return d.drawErr
}
func (d *fakeDriver) Present(render.SurfaceHandle) error { return nil }
func (d *fakeDriver) Close() error                       { return nil }

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestPlayer(t *testing.T, total int, cfg Config) (*Player, *fakeConn, *fakeSource, *fakeDriver) {
	t.Helper()
	conn := &fakeConn{}
	source := newFakeSource(total)
	drv := &fakeDriver{}
	factory := func() (render.Driver, error) { return drv, nil }

	p, err := New(conn, source, drv, factory, events.New(), testLogger(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, conn, source, drv
}

// bringUpOutput walks one display through discovery and configuration.
func bringUpOutput(t *testing.T, p *Player, id compositor.OutputID, name string) *output.Surface {
	t.Helper()
	p.handleEvent(compositor.OutputAdded{Output: id})
	p.handleEvent(compositor.OutputGeometry{Output: id, Name: name, Width: 1920, Height: 1080})
	p.handleEvent(compositor.SizeConfigured{Output: id, Width: 1920, Height: 1080})

	s := p.registry.Get(id)
	if s == nil {
		t.Fatalf("output %d not registered", id)
	}
	if s.State() != output.StateReady {
		t.Fatalf("output state = %s, want ready", s.State())
	}
	return s
}

func TestTickRendersOneFrame(t *testing.T) {
	p, conn, source, _ := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	s := bringUpOutput(t, p, 1, "DP-1")

	now := time.Now()
	if err := p.tick(now); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if s.FramesRendered != 1 {
		t.Errorf("FramesRendered = %d, want 1", s.FramesRendered)
	}
	if s.State() != output.StateWaitingCallback {
		t.Errorf("state = %s, want waiting_callback", s.State())
	}
	if len(conn.frameReqs) != 1 {
		t.Errorf("frame requests = %d, want 1", len(conn.frameReqs))
	}
	if !source.declared || !source.declaredZC {
		t.Errorf("path determination not declared back (declared=%v zc=%v)", source.declared, source.declaredZC)
	}

	// Still waiting for the pacing signal, nothing more is rendered.
	if err := p.tick(now.Add(p.clock.FrameDuration())); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if s.FramesRendered != 1 {
		t.Errorf("rendered while waiting for frame callback")
	}

	p.handleEvent(compositor.FrameDone{Output: 1})
	if s.State() != output.StateReady {
		t.Errorf("state after FrameDone = %s, want ready", s.State())
	}
}

func TestDescriptorsReleasedExactlyOnce(t *testing.T) {
	p, _, source, _ := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	if err := p.tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}

	// Simulate a stall: several frames overdue, forcing the skip path.
	p.handleEvent(compositor.FrameDone{Output: 1})
	if err := p.tick(start.Add(4 * p.clock.FrameDuration())); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if source.decoded < 3 {
		t.Fatalf("decoded = %d, expected catch-up decodes", source.decoded)
	}
	for fd, n := range source.closeCounts {
		if n != 1 {
			t.Errorf("fd %d closed %d times, want exactly 1", fd, n)
		}
	}
	// Two fds per decoded frame, all of them released.
	if len(source.closeCounts) != source.decoded*2 {
		t.Errorf("%d fds tracked for %d frames", len(source.closeCounts), source.decoded)
	}
}

func TestSkipBoundAndRebase(t *testing.T) {
	p, _, source, _ := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	if err := p.tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}
	decodedFirst := source.decoded

	// Twenty frames overdue: only MaxSkip decodes happen and the clock is
	// rebased instead of spiralling.
	p.handleEvent(compositor.FrameDone{Output: 1})
	now := start.Add(21 * p.clock.FrameDuration())
	if err := p.tick(now); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if got := source.decoded - decodedFirst; got != MaxSkip {
		t.Errorf("catch-up decoded %d frames, want %d", got, MaxSkip)
	}
	if behind := p.clock.Behind(now); behind != 0 {
		t.Errorf("behind after rebase = %d, want 0", behind)
	}
}

func TestLoopRestartClearsCacheAndSeeks(t *testing.T) {
	p, _, source, drv := newTestPlayer(t, 3, Config{Scale: video.ScaleFill, Loop: true})
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	for n := 0; n < 5; n++ {
		p.handleEvent(compositor.FrameDone{Output: 1})
		if err := p.tick(start.Add(time.Duration(n) * p.clock.FrameDuration())); err != nil {
			t.Fatalf("tick %d: %v", n, err)
		}
	}

	if source.seeks == 0 {
		t.Fatal("stream never rewound at end of stream")
	}
	if drv.destroyed == 0 {
		t.Error("import cache not cleared on loop restart")
	}
	if source.generation < 1+video.GenerationSeekGap {
		t.Errorf("generation = %d, want a seek gap bump", source.generation)
	}
	if p.clock.Displayed() < 0 {
		t.Error("no frame rendered after loop restart")
	}
}

func TestEndOfStreamWithoutLoopStops(t *testing.T) {
	p, _, source, _ := newTestPlayer(t, 1, Config{Scale: video.ScaleFill, Loop: false})
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	if err := p.tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}
	p.handleEvent(compositor.FrameDone{Output: 1})

	err := p.tick(start.Add(p.clock.FrameDuration()))
	if !errors.Is(err, errPlaybackDone) {
		t.Fatalf("err = %v, want playback done", err)
	}
	if source.seeks != 0 {
		t.Error("non-looping playback must not seek")
	}
}

func TestZeroCopyFailureDeclaredOnce(t *testing.T) {
	p, _, source, drv := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	drv.importErr = errors.New("tiled layout rejected")
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	if err := p.tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !source.declared || source.declaredZC {
		t.Fatalf("expected software path declared, got declared=%v zc=%v", source.declared, source.declaredZC)
	}

	// All further decodes must keep requesting software pixels.
	p.handleEvent(compositor.FrameDone{Output: 1})
	if err := p.tick(start.Add(p.clock.FrameDuration())); err != nil {
		t.Fatalf("tick: %v", err)
	}
	for i, want := range source.wantSWCalls {
		if !want {
			t.Errorf("decode %d did not request software pixels", i)
		}
	}
	if drv.imports != 1 {
		t.Errorf("imports = %d, want 1 (sticky failure)", drv.imports)
	}
}

func TestNvidiaAlwaysKeepsSoftwarePixels(t *testing.T) {
	conn := &fakeConn{}
	source := newFakeSource(-1)
	source.vendor = gpu.VendorNVIDIA
	drv := &fakeDriver{}

	p, err := New(conn, source, drv, func() (render.Driver, error) { return drv, nil },
		events.New(), testLogger(), Config{Scale: video.ScaleFill, Loop: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	if err := p.tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}
	p.handleEvent(compositor.FrameDone{Output: 1})
	if err := p.tick(start.Add(p.clock.FrameDuration())); err != nil {
		t.Fatalf("tick: %v", err)
	}

	for i, want := range source.wantSWCalls {
		if !want {
			t.Errorf("decode %d skipped software pixels on NVIDIA", i)
		}
	}
}

func TestSurfaceClosedRecovery(t *testing.T) {
	p, conn, _, _ := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	s := bringUpOutput(t, p, 1, "DP-1")
	bringUpOutput(t, p, 2, "DP-2")

	p.handleEvent(compositor.SurfaceClosed{Output: 1})
	if s.State() != output.StatePendingDestroy {
		t.Fatalf("state = %s, want pending_destroy", s.State())
	}

	// Duplicate close signals are harmless.
	p.handleEvent(compositor.SurfaceClosed{Output: 1})

	// Next tick: platform teardown.
	p.processLifecycle()
	if s.State() != output.StatePendingRecreate {
		t.Fatalf("state = %s, want pending_recreate", s.State())
	}
	if len(conn.destroyed) != 1 {
		t.Fatalf("destroyed = %d, want 1", len(conn.destroyed))
	}

	// Tick after: recreation with known geometry.
	p.processLifecycle()
	if s.State() != output.StateUnconfigured {
		t.Fatalf("state = %s, want unconfigured", s.State())
	}

	// Fresh configure completes the cycle.
	p.handleEvent(compositor.SizeConfigured{Output: 1, Width: 1920, Height: 1080})
	if s.State() != output.StateReady {
		t.Fatalf("state = %s, want ready", s.State())
	}

	// The second output was untouched throughout.
	if got := p.registry.Get(2).State(); got != output.StateReady {
		t.Errorf("healthy output state = %s, want ready", got)
	}
}

func TestOutputRemoved(t *testing.T) {
	p, _, _, _ := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	bringUpOutput(t, p, 1, "DP-1")

	p.handleEvent(compositor.OutputRemoved{Output: 1})
	if p.registry.Len() != 0 {
		t.Errorf("registry len = %d, want 0", p.registry.Len())
	}
	if p.rctx.HasSurface(1) {
		t.Error("gpu surface leaked after output removal")
	}
}

func TestOutputFilterSkipsOtherDisplays(t *testing.T) {
	p, conn, _, _ := newTestPlayer(t, -1, Config{OutputFilter: "HDMI-1", Scale: video.ScaleFill, Loop: true})

	p.handleEvent(compositor.OutputAdded{Output: 1})
	p.handleEvent(compositor.OutputGeometry{Output: 1, Name: "DP-1", Width: 1920, Height: 1080})
	if len(conn.created) != 0 {
		t.Errorf("surface created for filtered-out display")
	}

	p.handleEvent(compositor.OutputAdded{Output: 2})
	p.handleEvent(compositor.OutputGeometry{Output: 2, Name: "HDMI-1", Width: 1920, Height: 1080})
	if len(conn.created) != 1 {
		t.Errorf("created = %d, want 1", len(conn.created))
	}
}

func TestRunFailsWithoutDisplay(t *testing.T) {
	old := startupGrace
	startupGrace = 30 * time.Millisecond
	defer func() { startupGrace = old }()

	p, _, _, _ := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Run(ctx); !errors.Is(err, ErrNoUsableDisplay) {
		t.Fatalf("err = %v, want ErrNoUsableDisplay", err)
	}
}

func TestRendererResetAfterRepeatedDrawFailure(t *testing.T) {
	p, _, source, drv := newTestPlayer(t, -1, Config{Scale: video.ScaleFill, Loop: true})
	bringUpOutput(t, p, 1, "DP-1")

	start := time.Now()
	if err := p.tick(start); err != nil {
		t.Fatalf("tick: %v", err)
	}
	genBefore := source.generation

	drv.drawErr = errors.New("context lost")
	for n := 1; n <= resetFailureTicks; n++ {
		// Draw failure marks the output closed; walk it back to ready so
		// the next tick attempts again.
		p.handleEvent(compositor.FrameDone{Output: 1})
		if err := p.tick(start.Add(time.Duration(n) * p.clock.FrameDuration())); err != nil {
			t.Fatalf("tick %d: %v", n, err)
		}
		p.processLifecycle()
		p.processLifecycle()
		p.handleEvent(compositor.SizeConfigured{Output: 1, Width: 1920, Height: 1080})
	}

	if !p.rendererNeedsReset {
		t.Fatal("renderer reset not scheduled after repeated draw failures")
	}

	drv.drawErr = nil
	if err := p.resetRenderer(); err != nil {
		t.Fatalf("resetRenderer: %v", err)
	}
	if p.pathDetermined {
		t.Error("path determination must reset with the context")
	}
	if source.generation <= genBefore {
		t.Error("generation not bumped on renderer reset")
	}
}
