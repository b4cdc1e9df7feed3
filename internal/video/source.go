package video

import (
	"errors"

	"github.com/videowall/wlvideo/internal/gpu"
)

// ErrEndOfStream is returned by NextFrame when the stream is exhausted.
var ErrEndOfStream = errors.New("end of stream")

// GenerationSeekGap is how far the surface generation counter jumps on a
// seek, guaranteeing no collision with still-cached import keys from before
// the seek given the import cache's small fixed capacity.
const GenerationSeekGap = 100

// StreamInfo describes the opened stream.
type StreamInfo struct {
	Width          int
	Height         int
	FrameRate      float64
	HardwareDecode bool
	Vendor         gpu.Vendor
}

// FrameSource is the decode collaborator. Implementations own hardware
// decode state, the surface generation counter and identity assignment.
// All methods are called from the single playback loop goroutine.
type FrameSource interface {
	// NextFrame decodes and returns the next frame, staging a software
	// representation into the ring when wantSoftware is set. Returns
	// ErrEndOfStream when the stream is exhausted. Ownership of the
	// returned frame (including its descriptor handles) transfers to the
	// caller.
	NextFrame(wantSoftware bool) (*Frame, error)

	// SeekStart rewinds to the beginning of the stream and bumps the
	// surface generation by GenerationSeekGap.
	SeekStart() error

	// CloseDescriptor releases a descriptor's plane handles.
	CloseDescriptor(d *GpuBufferDescriptor) error

	// DeclareZeroCopyResult feeds back the renderer's one-shot path
	// determination so the source can stop producing the unused
	// representation.
	DeclareZeroCopyResult(works bool)

	// BumpGeneration advances the surface generation counter, invalidating
	// any import-cache keys minted before the call.
	BumpGeneration()

	// Info returns stream metadata.
	Info() StreamInfo

	// Close releases decoder resources.
	Close() error
}

// SourceOptions selects how a stream is opened.
type SourceOptions struct {
	// Device is the decode device node path; empty picks a default.
	Device string
	// Hwaccel requests hardware decode when available.
	Hwaccel bool
}

// OpenSourceFunc opens a frame source for a media file. Registered by the
// decoder backend; nil when the build carries none.
type OpenSourceFunc func(path string, opts SourceOptions) (FrameSource, error)

var openSource OpenSourceFunc

// ErrNoDecoder is returned by OpenSource when no decoder backend is
// compiled in.
var ErrNoDecoder = errors.New("no decoder backend available in this build")

// RegisterOpenSource installs the decoder backend's open function.
func RegisterOpenSource(fn OpenSourceFunc) { openSource = fn }

// OpenSource opens a stream via the registered decoder backend.
func OpenSource(path string, opts SourceOptions) (FrameSource, error) {
	if openSource == nil {
		return nil, ErrNoDecoder
	}
	return openSource(path, opts)
}
