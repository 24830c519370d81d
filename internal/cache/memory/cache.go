// Package memory provides the process-local cache used when Redis is off.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/prn-tf/timebucket/internal/repository"
)

// Cache is a TTL map guarded by a RWMutex. Entries live only in this process,
// so a multi-node deployment should use the Redis cache instead.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// entry is one cached value. A zero deadline never expires.
type entry struct {
	value    []byte
	deadline time.Time
}

func (e entry) live(now time.Time) bool {
	return e.deadline.IsZero() || now.Before(e.deadline)
}

// NewCache creates a Cache and sweeps expired entries every interval.
func NewCache(interval time.Duration) *Cache {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepEvery(interval)
	return c
}

func (c *Cache) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !e.live(now) {
			delete(c.entries, key)
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns a copy of the value stored under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !e.live(c.now()) {
		return nil, repository.ErrCacheMiss
	}
	return bytes.Clone(e.value), nil
}

// Set stores a copy of value for ttl.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.deadline = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete drops keys.
func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

var _ repository.Cache = (*Cache)(nil)
