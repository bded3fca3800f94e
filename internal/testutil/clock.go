// Package testutil holds deterministic helpers shared by tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a TickingClock reports after Reset.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// TickingClock is a deterministic wall clock for tests: every call to Now
// advances it by one step from Epoch, so successive timestamps are distinct
// and strictly increasing.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TickingClock struct {
	mu    sync.Mutex
	step  time.Duration
	ticks int64
}

// NewTickingClock creates a clock advancing by step per call.
// A non-positive step means one second.
func NewTickingClock(step time.Duration) *TickingClock {
	if step <= 0 {
		step = time.Second
	}
	return &TickingClock{step: step}
}

// Now advances the clock and returns the new time. The first call returns
// Epoch plus one step.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * c.step)
}

// Ticks returns how many times Now has been called since the last Reset.
func (c *TickingClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *TickingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
