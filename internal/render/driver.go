package render

import (
	"errors"

	"github.com/videowall/wlvideo/internal/compositor"
	"github.com/videowall/wlvideo/internal/video"
)

// SurfaceHandle identifies a GPU-presentable surface inside a Driver.
type SurfaceHandle uint64

// ImageHandle identifies an imported GPU image inside a Driver.
type ImageHandle uint64

// NoImage is the zero ImageHandle.
const NoImage ImageHandle = 0

// Capabilities reports what the GPU context supports. Probed once at
// context creation.
type Capabilities struct {
	// BufferImport: GPU buffer descriptors can be imported as renderable
	// images.
	BufferImport bool
	// Modifiers: non-linear layout modifiers are accepted on import.
	Modifiers bool
	// YUVHints: colorspace/range hints are accepted in import attributes.
	YUVHints bool
	// RGTexture: dual-channel texture formats exist for chroma packing.
	RGTexture bool
}

// TextureTarget selects one of the software-path staging textures.
type TextureTarget int

// Software-path textures.
const (
	TextureLuma TextureTarget = iota
	TextureChroma
)

// TextureFormat is the pixel format of a staging texture. The single and
// dual channel pairs depend on the red/red-green capability; the legacy
// luminance pair works everywhere.
type TextureFormat int

// Staging texture formats.
const (
	FormatLuminance TextureFormat = iota
	FormatLuminanceAlpha
	FormatR8
	FormatRG8
)

// ImportAttrs is the attribute list for importing a GPU buffer descriptor
// into a renderable image. Mirrors the descriptor wire shape plus optional
// colorspace hints.
type ImportAttrs struct {
	Width      int
	Height     int
	FourCC     video.FourCC
	PlaneCount int
	FDs        [video.MaxPlanes]int
	Offsets    [video.MaxPlanes]uint32
	Strides    [video.MaxPlanes]uint32
	Modifiers  [video.MaxPlanes]uint64

	// WithModifiers: include per-plane modifiers in the attribute list
	// (requires the modifier extension).
	WithModifiers bool

	// Optional colorspace/range hints.
	HintColor  bool
	Colorspace video.Colorspace
	Range      video.ColorRange
}

// Driver is the opaque GPU primitive layer: shader programs, upload calls
// and import calls live behind it. One Driver instance corresponds to one
// GPU context; a full renderer reset discards the Driver and makes a new
// one through the factory.
//
// All methods run on the playback loop goroutine.
type Driver interface {
	// Capabilities reports context capabilities, fixed for the Driver's
	// lifetime.
	Capabilities() Capabilities

	// Name returns a human-readable renderer description for vendor
	// identification and logs.
	Name() string

	// CreateSurface attaches a GPU surface to an output's platform surface.
	CreateSurface(id compositor.OutputID, width, height int) (SurfaceHandle, error)

	// ResizeSurface resizes an existing GPU surface.
	ResizeSurface(s SurfaceHandle, width, height int) error

	// DestroySurface releases a GPU surface.
	DestroySurface(s SurfaceHandle) error

	// ImportImage imports a buffer descriptor as a renderable image. The
	// descriptor's handles remain owned by the caller.
	ImportImage(attrs ImportAttrs) (ImageHandle, error)

	// DestroyImage releases an imported image.
	DestroyImage(img ImageHandle) error

	// AllocTexture (re)allocates a software staging texture at the given
	// pixel size and format, replacing the full contents.
	AllocTexture(t TextureTarget, format TextureFormat, width, height int) error

	// UploadTexture replaces a sub-region of a staging texture.
	UploadTexture(t TextureTarget, x, y, width, height int, data []byte) error

	// BeginFrame makes the surface current, sets the viewport and clears
	// the target.
	BeginFrame(s SurfaceHandle, width, height int) error

	// DrawImported draws a full-screen transformed quad sampling the
	// imported image.
	DrawImported(s SurfaceHandle, img ImageHandle, t Transform) error

	// DrawSoftware draws a full-screen transformed quad converting the
	// staged luma/chroma textures with the given matrix and range.
	DrawSoftware(s SurfaceHandle, t Transform, cs video.Colorspace, cr video.ColorRange) error

	// Present submits the frame.
	Present(s SurfaceHandle) error

	// Close destroys the GPU context and everything in it.
	Close() error
}

// DriverFactory builds a fresh GPU context. Called at startup and on every
// full renderer reset.
type DriverFactory func() (Driver, error)

// NewDriverFunc creates a Driver bound to a compositor connection and a
// render device node. Registered by the GPU backend; nil when the build
// carries none.
type NewDriverFunc func(conn compositor.Conn, renderNode string) (Driver, error)

var newDriver NewDriverFunc

// ErrNoDriver is returned by Factory when no GPU backend is compiled in.
var ErrNoDriver = errors.New("no gpu backend available in this build")

// RegisterDriver installs the GPU backend's constructor.
func RegisterDriver(fn NewDriverFunc) { newDriver = fn }

// Factory returns a DriverFactory using the registered backend.
func Factory(conn compositor.Conn, renderNode string) DriverFactory {
	return func() (Driver, error) {
		if newDriver == nil {
			return nil, ErrNoDriver
		}
		return newDriver(conn, renderNode)
	}
}
