package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Defaults applied by NewMemoryCache when a Config field is zero
const (
	DefaultMaxSize         = 1000
	DefaultTTL             = 5 * time.Minute
	DefaultCleanupInterval = time.Minute
	evictFraction          = 0.10
)

// Config configures one cache domain
type Config struct {
	Name            string
	MaxSize         int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Stats is a point-in-time view of a cache
type Stats struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	MaxSize int    `json:"maxSize"`
}

// cacheItem represents a single item in the cache with its insertion time
type cacheItem[V any] struct {
	value     V
	timestamp time.Time
	ttl       time.Duration
}

// MemoryCache is a thread-safe, size-bounded in-memory cache with TTL support.
// When full, the oldest 10% of entries by insertion time are evicted; reads do
// not refresh an entry's position, so this approximates LRU by recency of write.
type MemoryCache[V any] struct {
	name            string
	maxSize         int
	ttl             time.Duration
	cleanupInterval time.Duration

	data        map[string]cacheItem[V]
	lastCleanup time.Time
	mutex       sync.Mutex

	now func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache[V any](cfg Config) *MemoryCache[V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	return &MemoryCache[V]{
		name:            cfg.Name,
		maxSize:         cfg.MaxSize,
		ttl:             cfg.TTL,
		cleanupInterval: cfg.CleanupInterval,
		data:            make(map[string]cacheItem[V]),
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

// Get retrieves a value from the cache. Expired entries are evicted on access.
func (c *MemoryCache[V]) Get(key any) (V, bool) {
	var zero V
	k, err := Key(key)
	if err != nil {
		return zero, false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, exists := c.data[k]
	if !exists {
		return zero, false
	}
	if c.expired(item, c.now()) {
		delete(c.data, k)
		return zero, false
	}
	return item.value, true
}

// Set stores a value. A non-positive ttl uses the cache default.
func (c *MemoryCache[V]) Set(key any, value V, ttl time.Duration) error {
	k, err := Key(key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	if now.Sub(c.lastCleanup) >= c.cleanupInterval {
		c.removeExpired(now)
	}

	if _, exists := c.data[k]; !exists && len(c.data) >= c.maxSize {
		c.evictOldest()
	}

	c.data[k] = cacheItem[V]{
		value:     value,
		timestamp: now,
		ttl:       ttl,
	}
	return nil
}

// Has checks if a key exists in the cache and is not expired
func (c *MemoryCache[V]) Has(key any) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes a value and reports whether it was present
func (c *MemoryCache[V]) Delete(key any) bool {
	k, err := Key(key)
	if err != nil {
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, exists := c.data[k]
	delete(c.data, k)
	return exists
}

// Stats returns the current size and capacity
func (c *MemoryCache[V]) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return Stats{Name: c.name, Size: len(c.data), MaxSize: c.maxSize}
}

// Cleanup removes all expired entries and returns how many were dropped
func (c *MemoryCache[V]) Cleanup() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.removeExpired(c.now())
}

// Clear removes all items from the cache
func (c *MemoryCache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem[V])
}

// RunJanitor sweeps expired entries every interval until ctx is done
func (c *MemoryCache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.cleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

func (c *MemoryCache[V]) expired(item cacheItem[V], now time.Time) bool {
	return now.Sub(item.timestamp) > item.ttl
}

// removeExpired must be called with the mutex held
func (c *MemoryCache[V]) removeExpired(now time.Time) int {
	removed := 0
	for key, item := range c.data {
		if c.expired(item, now) {
			delete(c.data, key)
			removed++
		}
	}
	c.lastCleanup = now
	return removed
}

// evictOldest drops the oldest 10% (at least one) of entries by insertion time.
// Must be called with the mutex held.
func (c *MemoryCache[V]) evictOldest() {
	type aged struct {
		key       string
		timestamp time.Time
	}

	entries := make([]aged, 0, len(c.data))
	for key, item := range c.data {
		entries = append(entries, aged{key: key, timestamp: item.timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})

	n := int(float64(c.maxSize) * evictFraction)
	if n < 1 {
		n = 1
	}
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(c.data, e.key)
	}
}
