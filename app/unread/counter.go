// Package unread keeps the unread-message count in step with the content API.
package unread

import "sync"

// Counter is the process-wide unread message count. It never goes below 0.
type Counter struct {
	mu    sync.Mutex
	count int
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Set replaces the count with an authoritative value. Negative values clamp to 0.
func (c *Counter) Set(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = max(n, 0)
}

func (c *Counter) Increment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.count
}

func (c *Counter) DecrementFloor0() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 0 {
		c.count--
	}
	return c.count
}

func (c *Counter) ResetToZero() {
	c.Set(0)
}
