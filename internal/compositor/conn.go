// Package compositor abstracts the display-server connection. The playback
// loop drains typed events from a Conn once per iteration instead of
// reacting inside protocol callbacks; destructive lifecycle work triggered
// by an event is deferred to the next tick, which keeps the "cannot destroy
// a resource from within its own callback" constraint satisfied by
// construction.
//
// Protocol bootstrap (global discovery, binding) lives entirely inside Conn
// implementations.
package compositor

import (
	"context"
	"errors"
	"time"
)

// OutputID is a stable handle for a physical display, assigned by the
// platform registry and valid until OutputRemoved.
type OutputID uint32

// Conn is a connection to the compositor. All methods are called from the
// single playback loop goroutine; Drain is the loop's only suspension point.
type Conn interface {
	// Drain flushes outgoing requests, blocks up to timeout for incoming
	// events, and returns every event that arrived. A nil slice with nil
	// error means the timeout elapsed quietly.
	Drain(ctx context.Context, timeout time.Duration) ([]Event, error)

	// CreateSurface creates a fullscreen background platform surface on the
	// given output. Configuration arrives later as a SizeConfigured event.
	CreateSurface(id OutputID) error

	// DestroySurface tears down the platform surface on the given output.
	// Must never be called from within event delivery for that surface.
	DestroySurface(id OutputID) error

	// RequestFrame asks the output's pacing signal to fire once the current
	// frame has been consumed, delivered later as FrameDone.
	RequestFrame(id OutputID) error

	// Close disconnects.
	Close() error
}

// DialFunc opens a compositor connection. Registered by the platform
// backend; nil when the build carries no backend.
type DialFunc func() (Conn, error)

var dial DialFunc

// ErrNoBackend is returned by Dial when no platform backend is compiled in.
var ErrNoBackend = errors.New("no compositor backend available in this build")

// RegisterDial installs the platform backend's connection factory.
func RegisterDial(fn DialFunc) { dial = fn }

// Dial opens a connection via the registered backend.
func Dial() (Conn, error) {
	if dial == nil {
		return nil, ErrNoBackend
	}
	return dial()
}
