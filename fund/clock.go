package fund

import (
	"sync"
	"time"
)

// Clock supplies the current time in unix seconds. Successive reads never decrease.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// ManualClock is a settable clock for tests and simulations.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock creates a clock reading start.
func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *ManualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}
