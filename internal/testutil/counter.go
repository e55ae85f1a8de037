package testutil

import "sync"

// Counter is a thread-safe side-effect counter for tests that need to prove
// something ran (or never ran) on another goroutine.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// Inc increments and returns the new count.
func (c *Counter) Inc() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Load returns the current count without incrementing.
func (c *Counter) Load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset sets the count back to 0.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
