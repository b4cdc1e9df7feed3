package player

import "time"

// Scheduling constants.
const (
	// MaxSkip caps how many frames a single loop iteration may decode and
	// discard to catch up with the clock.
	MaxSkip = 5

	// ResetThreshold: when decode falls this many frames behind, skipping
	// is hopeless and the clock is rebased to the current position instead.
	ResetThreshold = 10

	// startupTimeout paces the loop before playback starts; idleTimeout
	// paces it while no output can be drawn to.
	startupTimeout = 16 * time.Millisecond
	idleTimeout    = 100 * time.Millisecond
)

// Clock maps wall time onto frame indices. Frame n is due at
// start + n*frameDuration; the clock never drifts with render jitter
// because display times are computed from the fixed start point, not
// accumulated.
type Clock struct {
	frameDuration time.Duration
	start         time.Time
	started       bool

	// displayed is the index of the last frame shown, -1 before the first.
	displayed int64
}

// NewClock creates a stopped clock with the given frame duration.
func NewClock(frameDuration time.Duration) *Clock {
	return &Clock{frameDuration: frameDuration, displayed: -1}
}

// Started reports whether the clock has a start point.
func (c *Clock) Started() bool { return c.started }

// FrameDuration returns the nominal frame period.
func (c *Clock) FrameDuration() time.Duration { return c.frameDuration }

// Start anchors frame 0 at now.
func (c *Clock) Start(now time.Time) {
	c.start = now
	c.started = true
}

// Displayed returns the index of the last displayed frame, -1 before the
// first.
func (c *Clock) Displayed() int64 { return c.displayed }

// Advance records one more frame displayed.
func (c *Clock) Advance() { c.displayed++ }

// TargetFrame returns the frame index due at now.
func (c *Clock) TargetFrame(now time.Time) int64 {
	if !c.started {
		return 0
	}
	elapsed := now.Sub(c.start)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / c.frameDuration)
}

// Behind returns how many frames the displayed position lags the target.
func (c *Clock) Behind(now time.Time) int64 {
	return c.TargetFrame(now) - c.displayed
}

// Rebase moves the start point so that the displayed position becomes
// current, abandoning the accumulated deficit.
func (c *Clock) Rebase(now time.Time) {
	c.start = now.Add(-time.Duration(c.displayed) * c.frameDuration)
}

// Restart resets the clock for a loop restart: frame 0 becomes the next
// target and the clock re-anchors on the first frame displayed after the
// seek.
func (c *Clock) Restart() {
	c.displayed = -1
	c.started = false
}

// WaitTimeout returns how long the loop may block draining events before
// the next frame is due. anyDrawable reports whether at least one output
// could accept a frame right now.
func (c *Clock) WaitTimeout(now time.Time, anyDrawable bool) time.Duration {
	if !c.started {
		return startupTimeout
	}
	if !anyDrawable {
		return idleTimeout
	}
	next := c.start.Add(time.Duration(c.displayed+1) * c.frameDuration)
	d := next.Sub(now)
	if d < 0 {
		return 0
	}
	if d > idleTimeout {
		return idleTimeout
	}
	return d
}
