package video

// FrameKind tags a frame as hardware-decoded (GPU buffer descriptor) or
// software (ring slot reference).
type FrameKind int

// Frame kinds.
const (
	FrameSoftware FrameKind = iota
	FrameHardware
)

// Frame is one decoded video frame. Created by the FrameSource, exclusively
// owned by the loop iteration that requested it, and released exactly once:
// either after rendering, when discarded as a skip victim, or on an error
// path.
type Frame struct {
	Kind       FrameKind
	PTS        float64
	Width      int
	Height     int
	Colorspace Colorspace
	Range      ColorRange

	// Hardware variant: descriptor plus the identity of the underlying
	// decode surface. Generation distinguishes reuses of the same surface
	// across time (seeks, context rebuilds).
	SurfaceID  uint64
	Generation uint64
	Desc       *GpuBufferDescriptor

	// Software variant: index into the staging ring. SoftwareValid reports
	// whether the slot actually holds this frame's pixels (a hardware frame
	// may carry both representations while the render path is undecided).
	RingSlot      int
	SoftwareValid bool
}

// Release closes the frame's buffer descriptor, if any. Safe to call more
// than once; only the first call releases handles.
func (f *Frame) Release() {
	if f == nil || f.Desc == nil {
		return
	}
	_ = f.Desc.Close()
}

// Hardware reports whether the frame carries an importable GPU buffer.
func (f *Frame) Hardware() bool {
	return f != nil && f.Kind == FrameHardware && f.Desc != nil
}
