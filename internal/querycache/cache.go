// Package querycache caches serialized query results under a TTL.
// The cache is the only shared mutable state in the query pipeline:
// reads take a shared lock, writes and sweeps take the exclusive lock.
// Expired entries are logically absent immediately but physically removed
// only by overwrite or an externally scheduled CleanupExpired sweep.
package querycache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Entry is one cached payload with its expiry instant.
type Entry struct {
	Payload   []byte
	ExpiresAt time.Time
}

// Stats summarizes cache occupancy.
type Stats struct {
	TotalEntries   int
	ActiveEntries  int
	ExpiredEntries int
}

// Cache is a TTL-keyed cache of JSON-serialized payloads.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	metrics *Metrics

	mu      sync.RWMutex
	entries map[string]Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New builds a cache whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set serializes the value and stores it under key, replacing any previous
// entry. A serialization failure propagates and nothing is written.
func (c *Cache) Set(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	c.mu.Lock()
	_, existed := c.entries[key]
	c.entries[key] = Entry{Payload: payload, ExpiresAt: c.now().Add(c.ttl)}
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		if !existed {
			c.metrics.entries.Set(float64(size))
		}
	}
	return nil
}

// Get deserializes the entry under key into dest. It reports false when
// the key is absent or already expired; expired entries are not removed
// on read.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.ExpiresAt) {
		if c.metrics != nil {
			c.metrics.misses.Inc()
		}
		return false, nil
	}
	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
	return true, nil
}

// Delete removes the entry under key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.entries.Set(float64(size))
	}
}

// CleanupExpired scans the whole cache and removes expired entries,
// returning how many were removed. The scan holds the exclusive lock,
// so an external scheduler should run it off the request path.
func (c *Cache) CleanupExpired() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.evictions.Add(float64(removed))
		c.metrics.entries.Set(float64(size))
	}
	return removed
}

// Stats counts total, active, and expired entries.
func (c *Cache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := Stats{TotalEntries: len(c.entries)}
	for _, entry := range c.entries {
		if now.Before(entry.ExpiresAt) {
			stats.ActiveEntries++
		} else {
			stats.ExpiredEntries++
		}
	}
	return stats
}
