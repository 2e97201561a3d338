package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache shields read-heavy paths from the store's latency. Entries expire
// after TTL; independently, each logical source (the key prefix before the
// first ':') tracks when it last refreshed, and once ForceInterval elapses the
// next Get reports a miss even for a live entry. Sustained traffic can keep
// re-setting entries forever; the force interval bounds staleness anyway.
//
// Keys follow the convention "<source>:<rest>", e.g. "requests:all".
type Cache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	force     time.Duration
	entries   map[string]entry
	refreshed map[string]time.Time

	// now is swapped in tests
	now func() time.Time
}

type entry struct {
	value    any
	inserted time.Time
}

func New(ttl, forceInterval time.Duration) *Cache {
	return &Cache{
		ttl:       ttl,
		force:     forceInterval,
		entries:   make(map[string]entry),
		refreshed: make(map[string]time.Time),
		now:       time.Now,
	}
}

func source(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Get returns the cached value, or absent when the entry expired or the
// source's force-refresh interval has elapsed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.Sub(e.inserted) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	if last, ok := c.refreshed[source(key)]; ok && now.Sub(last) > c.force {
		// Forced miss: the entry stays until the caller sets a fresh value,
		// which also resets the source's refresh clock.
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = entry{value: value, inserted: now}
	c.refreshed[source(key)] = now
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateByPrefix drops every entry whose key starts with prefix. Every
// write path that mutates the store must call this for the affected sources
// before returning, or readers can see stale state for up to TTL.
func (c *Cache) InvalidateByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	delete(c.refreshed, prefix)
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.refreshed = make(map[string]time.Time)
}

// Len reports the number of live entries (expired ones included until read).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
