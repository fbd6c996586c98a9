package token

import (
	"sync"
	"time"
)

// Clock is the wall-clock source for token issuance and verification.
// Production code uses SystemClock; tests inject a FixedClock so window
// boundaries can be pinned exactly.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock is a settable clock for tests.
type FixedClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewFixedClock creates a fixed clock pinned to the given instant.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{current: t}
}

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set pins the clock to a new instant.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
