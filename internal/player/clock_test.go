package player

import (
	"testing"
	"time"
)

func TestClockTargetFollowsWallTime(t *testing.T) {
	base := time.Now()
	c := NewClock(33 * time.Millisecond)
	c.Start(base)

	if got := c.TargetFrame(base); got != 0 {
		t.Errorf("target at start = %d, want 0", got)
	}
	if got := c.TargetFrame(base.Add(32 * time.Millisecond)); got != 0 {
		t.Errorf("target before one period = %d, want 0", got)
	}
	if got := c.TargetFrame(base.Add(33 * time.Millisecond)); got != 1 {
		t.Errorf("target at one period = %d, want 1", got)
	}
	if got := c.TargetFrame(base.Add(10 * 33 * time.Millisecond)); got != 10 {
		t.Errorf("target at ten periods = %d, want 10", got)
	}
}

func TestClockSteadyPlayback(t *testing.T) {
	base := time.Now()
	c := NewClock(33 * time.Millisecond)
	c.Start(base)

	// Each period the target advances by exactly one and one Advance
	// brings the clock back in step.
	for n := 0; n < 5; n++ {
		now := base.Add(time.Duration(n) * 33 * time.Millisecond)
		if behind := c.Behind(now); behind != 1 {
			t.Fatalf("frame %d: behind = %d, want 1", n, behind)
		}
		c.Advance()
	}
	if c.Displayed() != 4 {
		t.Errorf("displayed = %d, want 4", c.Displayed())
	}
}

func TestClockRebaseAfterStall(t *testing.T) {
	base := time.Now()
	c := NewClock(33 * time.Millisecond)
	c.Start(base)

	// Simulated stall: the wall clock says frame 20, nothing displayed.
	now := base.Add(20 * 33 * time.Millisecond)
	if behind := c.Behind(now); behind != 21 {
		t.Fatalf("behind = %d, want 21", behind)
	}

	// Bounded skip advances five frames; still past the reset threshold.
	for i := 0; i < MaxSkip; i++ {
		c.Advance()
	}
	behind := c.Behind(now)
	if behind <= ResetThreshold {
		t.Fatalf("behind = %d, expected above reset threshold %d", behind, ResetThreshold)
	}

	c.Rebase(now)
	if got := c.Behind(now); got != 0 {
		t.Errorf("behind after rebase = %d, want 0", got)
	}
	if c.Displayed() != int64(MaxSkip)-1 {
		t.Errorf("displayed = %d, rebase must not touch position", c.Displayed())
	}
}

func TestClockRestart(t *testing.T) {
	base := time.Now()
	c := NewClock(33 * time.Millisecond)
	c.Start(base)
	for i := 0; i < 7; i++ {
		c.Advance()
	}

	c.Restart()
	if c.Started() {
		t.Error("restart should stop the clock")
	}
	if c.Displayed() != -1 {
		t.Errorf("displayed = %d, want -1", c.Displayed())
	}

	c.Start(base)
	if got := c.TargetFrame(base); got != 0 {
		t.Errorf("target after restart = %d, want 0", got)
	}
}

func TestClockWaitTimeout(t *testing.T) {
	base := time.Now()
	c := NewClock(33 * time.Millisecond)

	if got := c.WaitTimeout(base, true); got != startupTimeout {
		t.Errorf("unstarted timeout = %v, want %v", got, startupTimeout)
	}

	c.Start(base)
	if got := c.WaitTimeout(base, false); got != idleTimeout {
		t.Errorf("no-drawable timeout = %v, want %v", got, idleTimeout)
	}

	// Next frame (index 0) is due immediately after start.
	if got := c.WaitTimeout(base.Add(time.Millisecond), true); got != 0 {
		t.Errorf("overdue timeout = %v, want 0", got)
	}

	c.Advance() // displayed = 0, frame 1 due at 33ms
	got := c.WaitTimeout(base.Add(13*time.Millisecond), true)
	if got != 20*time.Millisecond {
		t.Errorf("timeout = %v, want 20ms", got)
	}

	// Far-future due times are clamped.
	slow := NewClock(time.Second)
	slow.Start(base)
	slow.Advance()
	if got := slow.WaitTimeout(base, true); got != idleTimeout {
		t.Errorf("clamped timeout = %v, want %v", got, idleTimeout)
	}
}

func TestFrameDurationFromRate(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{30, 33333333 * time.Nanosecond},
		{0, 33333333 * time.Nanosecond},  // fallback
		{-5, 33333333 * time.Nanosecond}, // fallback
		{1000, time.Second / 240},        // clamped fast
		{0.1, time.Second},               // clamped slow
	}
	for _, tt := range tests {
		if got := FrameDurationFromRate(tt.fps); got != tt.want {
			t.Errorf("FrameDurationFromRate(%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}
