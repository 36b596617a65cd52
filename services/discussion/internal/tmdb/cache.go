package tmdb

import (
	"sync"
	"time"
)

const (
	defaultCacheTTL = 10 * time.Minute
	cacheCapacity   = 1000
)

type cacheEntry struct {
	payload []byte
	expires time.Time
}

// responseCache holds raw TMDB response bodies keyed by request path.
// Same bounded shape as the token verdict cache: stale entries read as
// misses, inserts at capacity evict the soonest-expiring entry.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newResponseCache(ttl time.Duration) *responseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &responseCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

func (c *responseCache) put(key string, payload []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= cacheCapacity {
		c.evictSoonest()
	}
	c.entries[key] = cacheEntry{payload: payload, expires: now.Add(c.ttl)}
}

func (c *responseCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if victim == "" || e.expires.Before(soonest) {
			victim = k
			soonest = e.expires
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}
