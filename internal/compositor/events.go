package compositor

// Event is a platform event delivered by Conn.Drain. The set is sealed;
// the loop switches over the concrete types.
type Event interface {
	output() OutputID
}

// OutputAdded announces a newly discovered display.
type OutputAdded struct {
	Output OutputID
}

// OutputGeometry reports display identity and mode. Delivered at discovery
// and whenever the mode changes.
type OutputGeometry struct {
	Output OutputID
	Name   string
	Width  int
	Height int
}

// OutputRemoved announces a display going away. All surfaces on it are
// already gone.
type OutputRemoved struct {
	Output OutputID
}

// SizeConfigured reports the compositor-assigned surface size. The first
// one after surface creation makes the surface drawable.
type SizeConfigured struct {
	Output OutputID
	Width  int
	Height int
}

// SurfaceClosed reports a compositor-forced surface teardown (e.g. a
// compositor restart). The platform surface must be destroyed and may be
// recreated later.
type SurfaceClosed struct {
	Output OutputID
}

// FrameDone reports that the previously presented frame was consumed;
// rendering the next one is now allowed.
type FrameDone struct {
	Output OutputID
}

func (e OutputAdded) output() OutputID    { return e.Output }
func (e OutputGeometry) output() OutputID { return e.Output }
func (e OutputRemoved) output() OutputID  { return e.Output }
func (e SizeConfigured) output() OutputID { return e.Output }
func (e SurfaceClosed) output() OutputID  { return e.Output }
func (e FrameDone) output() OutputID      { return e.Output }
