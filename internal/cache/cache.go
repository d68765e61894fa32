// Package cache is an in-process TTL cache used to memoize LLM calls.
// Instances are constructor-injected; there is no package-level store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

type item struct {
	value     any
	expiresAt time.Time
}

type Cache struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

type Option func(*Cache)

// WithClock injects the time source, so tests can advance a virtual clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		items: make(map[string]item),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key, unconditionally replacing any previous entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Get returns the live value for key. Expired entries are deleted on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if c.now().After(it.expiresAt) {
		delete(c.items, key)
		return nil, false
	}

	return it.value, true
}

// CleanExpired sweeps the whole store and returns how many entries it evicted.
// Intended to run at the start of each pipeline run and/or on a fixed interval.
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
			evicted++
		}
	}
	return evicted
}

func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// StartSweeping runs CleanExpired every interval until the returned stop
// function is called. Entry count is unbounded otherwise: correctness relies
// on TTL expiry, not memory pressure.
func (c *Cache) StartSweeping(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.CleanExpired()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Key derives a bounded cache key from a namespace and arbitrarily long parts.
// Parts are joined with a unit separator before hashing so that distinct
// tuples can never concatenate to the same digest input, and the namespace
// keeps unrelated operations out of each other's key space.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0x1f})
	h.Write([]byte(strings.Join(parts, "\x1f")))
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
