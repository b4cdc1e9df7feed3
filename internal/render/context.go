// Package render implements the dual-path renderer: zero-copy presentation
// of imported GPU buffers with a cached import table, and a software
// fallback uploading staged NV12 planes into textures. One Context wraps
// one GPU context; a full renderer reset discards the Context together
// with its Driver.
package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/videowall/wlvideo/internal/compositor"
	"github.com/videowall/wlvideo/internal/video"
)

// Draw errors.
var (
	// ErrNoSurface: the output has no GPU surface attached.
	ErrNoSurface = errors.New("output has no gpu surface")
	// ErrNoFrameData: the frame carries no representation the context can
	// draw (import failed or was skipped, and no software pixels staged).
	ErrNoFrameData = errors.New("frame has no drawable representation")
)

// Stats is a snapshot of renderer counters since context creation.
type Stats struct {
	CacheHits      uint64
	CacheMisses    uint64
	CacheEntries   int
	ZeroCopyFrames uint64
	SoftwareFrames uint64
}

// Context owns the GPU surfaces of all outputs, the buffer import cache
// and the software staging textures. All methods run on the playback loop
// goroutine.
type Context struct {
	driver Driver
	caps   Capabilities
	logger *slog.Logger

	surfaces map[compositor.OutputID]SurfaceHandle

	cache        importCache
	frameCounter uint64

	// One-shot zero-copy probe, sticky for the context's lifetime. A
	// failed first import disables the path until the whole context is
	// rebuilt.
	zeroCopyTested bool
	zeroCopyWorks  bool
	importWarned   bool

	texAllocated bool
	texW, texH   int

	stats Stats
}

// New wraps a freshly created Driver.
func New(driver Driver, logger *slog.Logger) *Context {
	c := &Context{
		driver:   driver,
		caps:     driver.Capabilities(),
		logger:   logger,
		surfaces: make(map[compositor.OutputID]SurfaceHandle),
	}
	logger.Info("Renderer context created",
		"renderer", driver.Name(),
		"buffer_import", c.caps.BufferImport,
		"modifiers", c.caps.Modifiers)
	return c
}

// Capabilities returns the wrapped driver's capabilities.
func (c *Context) Capabilities() Capabilities { return c.caps }

// DriverName returns the wrapped driver's description.
func (c *Context) DriverName() string { return c.driver.Name() }

// CreateOutputSurface attaches a GPU surface to an output.
func (c *Context) CreateOutputSurface(id compositor.OutputID, width, height int) error {
	if _, ok := c.surfaces[id]; ok {
		return fmt.Errorf("output %d already has a gpu surface", id)
	}
	h, err := c.driver.CreateSurface(id, width, height)
	if err != nil {
		return fmt.Errorf("create gpu surface for output %d: %w", id, err)
	}
	c.surfaces[id] = h
	return nil
}

// ResizeOutputSurface resizes an output's GPU surface.
func (c *Context) ResizeOutputSurface(id compositor.OutputID, width, height int) error {
	h, ok := c.surfaces[id]
	if !ok {
		return ErrNoSurface
	}
	return c.driver.ResizeSurface(h, width, height)
}

// DestroyOutputSurface releases an output's GPU surface. No-op when the
// output has none.
func (c *Context) DestroyOutputSurface(id compositor.OutputID) {
	h, ok := c.surfaces[id]
	if !ok {
		return
	}
	delete(c.surfaces, id)
	if err := c.driver.DestroySurface(h); err != nil {
		c.logger.Warn("GPU surface destroy failed", "output_id", id, "error", err)
	}
}

// HasSurface reports whether the output currently has a GPU surface.
func (c *Context) HasSurface(id compositor.OutputID) bool {
	_, ok := c.surfaces[id]
	return ok
}

// ClearCache drops every cached imported image. Called on seeks and loop
// restarts, before the underlying decode surfaces are recycled.
func (c *Context) ClearCache() {
	c.cache.clear(func(img ImageHandle) {
		if err := c.driver.DestroyImage(img); err != nil {
			c.logger.Warn("Imported image destroy failed", "error", err)
		}
	})
	c.stats.CacheEntries = 0
}

// Stats returns a snapshot of the renderer counters.
func (c *Context) Stats() Stats {
	s := c.stats
	s.CacheEntries = c.cache.len()
	return s
}

// Close releases the cache, all GPU surfaces and the driver.
func (c *Context) Close() error {
	c.ClearCache()
	for id, h := range c.surfaces {
		if err := c.driver.DestroySurface(h); err != nil {
			c.logger.Warn("GPU surface destroy failed", "output_id", id, "error", err)
		}
		delete(c.surfaces, id)
	}
	return c.driver.Close()
}

// Draw renders one frame onto one output. When tryZeroCopy is set and the
// frame carries an importable buffer, the imported path is attempted first;
// a failure there falls back to staged software pixels within the same
// call. Returns whether the frame was presented zero-copy.
func (c *Context) Draw(id compositor.OutputID, outW, outH int, frame *video.Frame, ring *video.SoftwareRing, mode video.ScaleMode, tryZeroCopy bool) (bool, error) {
	h, ok := c.surfaces[id]
	if !ok {
		return false, ErrNoSurface
	}

	c.frameCounter++

	if err := c.driver.BeginFrame(h, outW, outH); err != nil {
		return false, fmt.Errorf("begin frame: %w", err)
	}
	t := ComputeTransform(frame.Width, frame.Height, outW, outH, mode)

	if tryZeroCopy && frame.Hardware() && c.caps.BufferImport && !(c.zeroCopyTested && !c.zeroCopyWorks) {
		err := c.drawImported(h, frame, t)
		if err == nil {
			c.stats.ZeroCopyFrames++
			if err := c.driver.Present(h); err != nil {
				return true, fmt.Errorf("present: %w", err)
			}
			return true, nil
		}
		if !c.importWarned {
			c.logger.Warn("Buffer import failed, falling back to software upload", "error", err)
			c.importWarned = true
		}
	}

	if ring == nil || !frame.SoftwareValid {
		return false, ErrNoFrameData
	}
	if err := c.drawSoftware(h, frame, ring, t); err != nil {
		return false, err
	}
	c.stats.SoftwareFrames++
	if err := c.driver.Present(h); err != nil {
		return false, fmt.Errorf("present: %w", err)
	}
	return false, nil
}

// drawImported draws via the import cache. The first import attempt decides
// the sticky zero-copy result for this context.
func (c *Context) drawImported(h SurfaceHandle, frame *video.Frame, t Transform) error {
	key := cacheKey{surface: frame.SurfaceID, generation: frame.Generation}

	if e := c.cache.lookup(key); e != nil {
		c.stats.CacheHits++
		e.lastUse = c.frameCounter
		return c.driver.DrawImported(h, e.image, t)
	}
	c.stats.CacheMisses++

	img, err := c.importImage(frame)

	if !c.zeroCopyTested {
		c.zeroCopyTested = true
		c.zeroCopyWorks = err == nil
		if err == nil {
			c.logger.Info("Zero-copy buffer import works", "renderer", c.driver.Name())
		} else {
			c.logger.Info("Zero-copy buffer import unavailable", "error", err)
		}
	}
	if err != nil {
		return err
	}

	e := c.cache.insert(key, img, func(old ImageHandle) {
		if derr := c.driver.DestroyImage(old); derr != nil {
			c.logger.Warn("Imported image destroy failed", "error", derr)
		}
	})
	e.lastUse = c.frameCounter
	return c.driver.DrawImported(h, e.image, t)
}

// importImage validates and imports a frame's buffer descriptor.
func (c *Context) importImage(frame *video.Frame) (ImageHandle, error) {
	d := frame.Desc
	if err := d.Validate(); err != nil {
		return NoImage, err
	}

	withMods := false
	for i := 0; i < d.PlaneCount; i++ {
		m := d.Modifiers[i]
		if m != video.ModifierLinear && m != video.ModifierInvalid {
			// Non-linear layout cannot be described without the modifier
			// extension; fail before handing garbage to the driver.
			if !c.caps.Modifiers {
				return NoImage, fmt.Errorf("plane %d has modifier %#x but context lacks modifier support", i, m)
			}
			withMods = true
		}
	}

	attrs := ImportAttrs{
		Width:         frame.Width,
		Height:        frame.Height,
		FourCC:        d.FourCC,
		PlaneCount:    d.PlaneCount,
		FDs:           d.FDs,
		Offsets:       d.Offsets,
		Strides:       d.Strides,
		Modifiers:     d.Modifiers,
		WithModifiers: withMods,
	}
	if c.caps.YUVHints {
		attrs.HintColor = true
		attrs.Colorspace = frame.Colorspace
		attrs.Range = frame.Range
	}
	return c.driver.ImportImage(attrs)
}

// drawSoftware uploads the frame's staged NV12 planes and draws the
// converting quad.
func (c *Context) drawSoftware(h SurfaceHandle, frame *video.Frame, ring *video.SoftwareRing, t Transform) error {
	w, hgt := ring.Width(), ring.Height()
	if !c.texAllocated || c.texW != w || c.texH != hgt {
		lumaFmt, chromaFmt := FormatLuminance, FormatLuminanceAlpha
		if c.caps.RGTexture {
			lumaFmt, chromaFmt = FormatR8, FormatRG8
		}
		if err := c.driver.AllocTexture(TextureLuma, lumaFmt, w, hgt); err != nil {
			return fmt.Errorf("alloc luma texture: %w", err)
		}
		if err := c.driver.AllocTexture(TextureChroma, chromaFmt, w/2, hgt/2); err != nil {
			return fmt.Errorf("alloc chroma texture: %w", err)
		}
		c.texAllocated = true
		c.texW, c.texH = w, hgt
	}

	slot := frame.RingSlot
	y := ring.Y(slot)
	uv := ring.UV(slot)

	// A tightly packed ring uploads in one call; padded strides go row by
	// row so the texture never sees the padding bytes.
	if ring.YStride() == w {
		if err := c.driver.UploadTexture(TextureLuma, 0, 0, w, hgt, y); err != nil {
			return fmt.Errorf("upload luma: %w", err)
		}
	} else {
		for row := 0; row < hgt; row++ {
			off := row * ring.YStride()
			if err := c.driver.UploadTexture(TextureLuma, 0, row, w, 1, y[off:off+w]); err != nil {
				return fmt.Errorf("upload luma row %d: %w", row, err)
			}
		}
	}
	// Interleaved chroma rows are w bytes wide (two bytes per sample pair).
	if ring.UVStride() == w {
		if err := c.driver.UploadTexture(TextureChroma, 0, 0, w/2, hgt/2, uv); err != nil {
			return fmt.Errorf("upload chroma: %w", err)
		}
	} else {
		for row := 0; row < hgt/2; row++ {
			off := row * ring.UVStride()
			if err := c.driver.UploadTexture(TextureChroma, 0, row, w/2, 1, uv[off:off+w]); err != nil {
				return fmt.Errorf("upload chroma row %d: %w", row, err)
			}
		}
	}

	return c.driver.DrawSoftware(h, t, frame.Colorspace, frame.Range)
}
