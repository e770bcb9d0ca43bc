// Package cache provides TTL-keyed memoization for expensive detector
// calls. It is the single shared-mutation point of the pipeline: writes are
// serialized per key while distinct keys proceed fully concurrently, and
// concurrent callers for one key share a single in-flight computation.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// entry is one stored value with its expiry bookkeeping.
type entry struct {
	value     any
	fetchedAt time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.fetchedAt) >= e.ttl
}

// Cache is a concurrency-safe TTL cache with in-flight deduplication.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
	clock   Clock

	onHit   func()
	onMiss  func()
	onEvict func()
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a clock, used by tests to control TTL expiry.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithStats installs hit, miss and eviction callbacks. Any of the three
// may be nil.
func WithStats(onHit, onMiss, onEvict func()) Option {
	return func(c *Cache) {
		c.onHit = onHit
		c.onMiss = onMiss
		c.onEvict = onEvict
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached value for key, or runs compute exactly
// once across concurrent callers and stores the result for ttl. Stale
// entries are never served past expiry. A compute error propagates to the
// whole in-flight caller set and nothing is stored, so the next caller
// retries fresh.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.lookup(key); ok {
		c.count(c.onHit)
		return v.(T), nil
	}
	c.count(c.onMiss)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: another caller may have stored
		// the value between our miss and acquiring the flight.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.store(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// lookup returns a live (non-expired) value.
func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if e.expired(c.clock()) {
		c.mu.Lock()
		// Re-check: a concurrent compute may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && cur.expired(c.clock()) {
			delete(c.entries, key)
			c.count(c.onEvict)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) count(fn func()) {
	if fn != nil {
		fn()
	}
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = &entry{value: value, fetchedAt: c.clock(), ttl: ttl}
	c.mu.Unlock()
}

// Invalidate drops a key immediately.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
