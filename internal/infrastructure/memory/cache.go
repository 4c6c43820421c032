package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// SweepInterval is the minimum time between full scans for expired entries.
const SweepInterval = time.Minute

// Cache is a single-process ports.CacheBackend with per-key expiry.
// Expired entries are dropped on access, and writes sweep the whole map at
// most once per SweepInterval so keys that are never read again are freed.
type Cache struct {
	mu        sync.Mutex
	data      map[string]entry
	lastSweep time.Time

	now func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		data:      make(map[string]entry),
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// NewCacheWithClock is used by tests that need to move time forward.
func NewCacheWithClock(now func() time.Time) *Cache {
	c := NewCache()
	c.now = now
	c.lastSweep = now()
	return c
}

func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(c.now()) {
		delete(c.data, key)
		return entry{}, false
	}
	return e, true
}

// sweep removes expired entries if SweepInterval has passed. Callers hold mu.
func (c *Cache) sweep() {
	now := c.now()
	if now.Sub(c.lastSweep) < SweepInterval {
		return
	}
	c.lastSweep = now
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
		}
	}
}

func (c *Cache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = entry{value: stored, expiresAt: c.expiry(ttl)}
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// DeleteByPattern matches keys the way Redis SCAN MATCH does for `*` and `?`.
func (c *Cache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	deleted := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			continue
		}
		if globMatch(pattern, k) {
			delete(c.data, k)
			deleted++
		}
	}
	return deleted, nil
}

func (c *Cache) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = entry{value: stored, expiresAt: c.expiry(ttl)}
	return true, nil
}

func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, e := range c.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// globMatch reports whether s matches pattern, where `*` matches any run of
// characters (including none) and `?` matches exactly one.
func globMatch(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

var _ ports.CacheBackend = (*Cache)(nil)
