package sms

import (
	"fmt"
	"sync"
	"time"
)

// Dedup defaults.
const (
	DefaultDedupWindow   = 60 * time.Second
	DefaultDedupCapacity = 1024
)

// DedupCache remembers recently seen messages so a broadcast delivered twice
// is processed once. Entries expire after the window and are pruned on
// access. When full, the oldest entry is evicted.
type DedupCache struct {
	seen     map[string]time.Time
	order    []string
	window   time.Duration
	capacity int
	mu       sync.Mutex
}

// NewDedupCache creates a cache. Non-positive arguments select the defaults.
func NewDedupCache(window time.Duration, capacity int) *DedupCache {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupCache{
		seen:     make(map[string]time.Time),
		window:   window,
		capacity: capacity,
	}
}

// Key builds the idempotency key for one delivery.
func Key(sender string, deliveredAt time.Time, body string) string {
	return fmt.Sprintf("%s_%d_%s", sender, deliveredAt.UnixMilli(), body)
}

// Seen reports whether key was recorded within the window before now, and
// records it if not.
func (c *DedupCache) Seen(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune(now)

	if _, ok := c.seen[key]; ok {
		return true
	}

	for len(c.order) >= c.capacity {
		c.evictOldest()
	}
	c.seen[key] = now
	c.order = append(c.order, key)
	return false
}

// Len returns the number of live entries.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// prune drops expired entries. order is kept in insertion order, which is
// also expiry order since callers pass non-decreasing times.
func (c *DedupCache) prune(now time.Time) {
	cutoff := now.Add(-c.window)
	for len(c.order) > 0 {
		key := c.order[0]
		if c.seen[key].After(cutoff) {
			return
		}
		c.evictOldest()
	}
}

func (c *DedupCache) evictOldest() {
	key := c.order[0]
	c.order = c.order[1:]
	delete(c.seen, key)
}
