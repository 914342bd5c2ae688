package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter is an in-process Counter with per-key expiry. Expired keys
// are dropped lazily on access and swept periodically by a janitor, so
// correctness never depends on sweep timing. Losing counters only degrades
// denial-of-service protection, never workflow correctness.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryCounter builds a counter and starts its background sweep.
func NewMemoryCounter() *MemoryCounter {
	c := &MemoryCounter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	go c.janitor(time.Minute)
	return c
}

func (c *MemoryCounter) Increment(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &entry{expiresAt: now.Add(ttl)}
		c.entries[key] = e
	}
	e.count++
	return e.count, e.expiresAt.Sub(now), nil
}

func (c *MemoryCounter) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		now := c.now()
		c.mu.Lock()
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		c.mu.Unlock()
	}
}
