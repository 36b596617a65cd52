package remoteauth

import (
	"sync"
	"time"

	"github.com/cinetalk/cinetalk/pkg/authclient"
)

type cacheEntry struct {
	user        authclient.User
	cachedUntil time.Time
}

// Cache remembers recent authority verdicts keyed by the exact token
// string. It is a per-process performance shortcut, never an authority:
// an entry past its TTL is treated as absent, full stop. Each bridge
// instance owns its cache; nothing here is shared process-globally.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]cacheEntry
}

const (
	DefaultTTL      = time.Minute
	DefaultCapacity = 10_000
)

func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]cacheEntry),
	}
}

// Get returns the cached identity for token, or ok=false if the entry
// is missing or stale. A stale entry is dropped on the spot.
func (c *Cache) Get(token string, now time.Time) (authclient.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return authclient.User{}, false
	}
	if !now.Before(entry.cachedUntil) {
		delete(c.entries, token)
		return authclient.User{}, false
	}
	return entry.user, true
}

// Put stores a verdict. At capacity, the entry closest to expiring is
// evicted to make room.
func (c *Cache) Put(token string, user authclient.User, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[token]; !exists && len(c.entries) >= c.capacity {
		c.evictSoonest()
	}
	c.entries[token] = cacheEntry{user: user, cachedUntil: now.Add(c.ttl)}
}

// Sweep drops every expired entry and reports how many went.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for token, entry := range c.entries {
		if !now.Before(entry.cachedUntil) {
			delete(c.entries, token)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictSoonest() {
	var victim string
	var soonest time.Time
	first := true
	for token, entry := range c.entries {
		if first || entry.cachedUntil.Before(soonest) {
			victim = token
			soonest = entry.cachedUntil
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}

// StartSweeper runs Sweep on the given interval until the returned stop
// function is called.
func (c *Cache) StartSweeper(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				c.Sweep(time.Now())
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
