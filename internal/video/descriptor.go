package video

import "errors"

// MaxPlanes is the maximum number of planes carried by a descriptor,
// matching the kernel buffer-sharing ABI.
const MaxPlanes = 4

// Buffer layout modifier values. ModifierInvalid marks a plane whose
// exporter did not report a modifier; importers treat it as linear.
const (
	ModifierLinear  uint64 = 0
	ModifierInvalid uint64 = 0x00ffffffffffffff
)

// NoFD marks an unused plane handle slot.
const NoFD = -1

// HandleCloser releases one plane file descriptor. Injected by the frame
// source so descriptor ownership can be exercised without a live driver.
type HandleCloser func(fd int) error

// GpuBufferDescriptor describes a GPU-resident buffer for import into a
// different GPU API context: per-plane handles, layout, format, and tiling
// metadata. Every plane handle is independently closable; exporters that
// share one allocation across planes must hand over duplicated handles.
//
// Ownership transfers to the first consumer. Close releases all plane
// handles exactly once; further calls are no-ops.
type GpuBufferDescriptor struct {
	FDs        [MaxPlanes]int
	Offsets    [MaxPlanes]uint32
	Strides    [MaxPlanes]uint32
	Modifiers  [MaxPlanes]uint64
	FourCC     FourCC
	Width      int
	Height     int
	PlaneCount int

	closeFD HandleCloser
	closed  bool
}

// NewGpuBufferDescriptor returns a descriptor with all plane slots marked
// unused and the given closer bound for release.
func NewGpuBufferDescriptor(closeFD HandleCloser) *GpuBufferDescriptor {
	d := &GpuBufferDescriptor{closeFD: closeFD}
	for i := range d.FDs {
		d.FDs[i] = NoFD
		d.Modifiers[i] = ModifierInvalid
	}
	return d
}

// Close releases every plane handle. Idempotent: only the first call closes
// anything. Returns the first close error encountered.
func (d *GpuBufferDescriptor) Close() error {
	if d == nil || d.closed {
		return nil
	}
	d.closed = true

	var first error
	for i := range d.FDs {
		if d.FDs[i] == NoFD {
			continue
		}
		if d.closeFD != nil {
			if err := d.closeFD(d.FDs[i]); err != nil && first == nil {
				first = err
			}
		}
		d.FDs[i] = NoFD
	}
	return first
}

// Closed reports whether the descriptor's handles have been released.
func (d *GpuBufferDescriptor) Closed() bool {
	return d == nil || d.closed
}

var errNoPlanes = errors.New("descriptor has no planes")

// Validate checks the descriptor is importable at all: at least one plane
// with a usable handle.
func (d *GpuBufferDescriptor) Validate() error {
	if d.PlaneCount <= 0 || d.FDs[0] == NoFD {
		return errNoPlanes
	}
	return nil
}
