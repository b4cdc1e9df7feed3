package video

import (
	"fmt"
	"unsafe"
)

// RingSlots is the number of staging slots. Two slots give double
// buffering: the pipeline's strictly sequential decode->display ordering
// guarantees a slot is never read after being overwritten.
const RingSlots = 2

const ringAlign = 64

// SoftwareRing is a fixed set of preallocated NV12 staging slots sized for
// the stream resolution. Allocated once at stream start, never resized.
// Each slot is a contiguous luma+chroma region; strides are rounded up to
// the alignment so rows can be uploaded without repacking.
type SoftwareRing struct {
	data     []byte
	width    int
	height   int
	yStride  int
	uvStride int
	slotSize int
	next     int
}

// NewSoftwareRing allocates the ring for the given video resolution.
func NewSoftwareRing(width, height int) (*SoftwareRing, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid ring dimensions %dx%d", width, height)
	}

	r := &SoftwareRing{
		width:   width,
		height:  height,
		yStride: (width + ringAlign - 1) &^ (ringAlign - 1),
	}
	r.uvStride = r.yStride
	ySize := r.yStride * height
	uvSize := r.uvStride * (height / 2)
	r.slotSize = ySize + uvSize

	// Over-allocate so every slot base lands on an aligned boundary.
	raw := make([]byte, r.slotSize*RingSlots+ringAlign)
	off := int(ringAlign-uintptr(unsafe.Pointer(&raw[0]))%ringAlign) % ringAlign
	r.data = raw[off : off+r.slotSize*RingSlots]
	return r, nil
}

// Width returns the video width the ring was sized for.
func (r *SoftwareRing) Width() int { return r.width }

// Height returns the video height the ring was sized for.
func (r *SoftwareRing) Height() int { return r.height }

// YStride returns the luma row stride in bytes.
func (r *SoftwareRing) YStride() int { return r.yStride }

// UVStride returns the interleaved chroma row stride in bytes.
func (r *SoftwareRing) UVStride() int { return r.uvStride }

// SlotSize returns the byte size of one slot.
func (r *SoftwareRing) SlotSize() int { return r.slotSize }

// Y returns the luma region of the given slot.
func (r *SoftwareRing) Y(slot int) []byte {
	base := slot * r.slotSize
	return r.data[base : base+r.yStride*r.height]
}

// UV returns the interleaved chroma region of the given slot.
func (r *SoftwareRing) UV(slot int) []byte {
	base := slot*r.slotSize + r.yStride*r.height
	return r.data[base : base+r.uvStride*(r.height/2)]
}

// NextSlot returns the slot a producer should write next and advances the
// cursor. Only valid under the single-threaded decode->display ordering.
func (r *SoftwareRing) NextSlot() int {
	slot := r.next
	r.next = (slot + 1) % RingSlots
	return slot
}
