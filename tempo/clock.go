package tempo

import "time"

// Clock is the time base schedulers run against, in seconds. Production code
// wraps the audio subsystem's hardware clock (or the monotonic system clock);
// tests drive a ManualClock.
type Clock interface {
	Now() float64
}

// SystemClock reads the monotonic system clock relative to its creation time
type SystemClock struct {
	origin time.Time
}

// NewSystemClock creates a clock anchored at the current instant
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

func (c *SystemClock) Now() float64 {
	return time.Since(c.origin).Seconds()
}

// ManualClock is a hand-advanced clock for tests
type ManualClock struct {
	now float64
}

// NewManualClock creates a manual clock starting at t
func NewManualClock(t float64) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() float64 {
	return c.now
}

// Advance moves the clock forward by dt seconds
func (c *ManualClock) Advance(dt float64) {
	c.now += dt
}

// Set jumps the clock to an absolute time
func (c *ManualClock) Set(t float64) {
	c.now = t
}
