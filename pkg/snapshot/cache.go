package snapshot

import (
	"context"
	"math"
	"time"
)

// Cache wraps a Service with a staleness budget. `cached == nil` if and
// only if `cachedAt == 0`; callers relying on AgeMs must check Cached for
// nil before trusting it.
type Cache struct {
	service  *Service
	maxAgeMs int64

	cached    *Snapshot
	cachedAt  int64 // epoch ms, 0 when empty
	cachedURL string
}

// NewCache wraps service with a staleness budget of maxAgeMs.
func NewCache(service *Service, maxAgeMs int64) *Cache {
	return &Cache{service: service, maxAgeMs: maxAgeMs}
}

// Get returns the cached snapshot when its age is within budget and
// forceRefresh is false; otherwise it acquires a fresh one and replaces
// the cache.
func (c *Cache) Get(ctx context.Context, opts Options, forceRefresh bool) (*Snapshot, error) {
	if !forceRefresh && c.cached != nil && c.AgeMs() <= c.maxAgeMs {
		return c.cached, nil
	}

	snap, err := c.service.Acquire(ctx, opts)
	if err != nil {
		return nil, err
	}

	c.cached = snap
	c.cachedAt = nowMs()
	c.cachedURL = snap.URL
	return snap, nil
}

// Invalidate zeros the cache. Calling it twice in a row is equivalent to
// calling it once.
func (c *Cache) Invalidate() {
	c.cached = nil
	c.cachedAt = 0
	c.cachedURL = ""
}

// AgeMs returns the cache entry's age in milliseconds, or +Inf when empty.
func (c *Cache) AgeMs() int64 {
	if c.cached == nil || c.cachedAt == 0 {
		return math.MaxInt64
	}
	return nowMs() - c.cachedAt
}

// Cached returns the currently cached snapshot without triggering a
// refresh, or nil if the cache is empty.
func (c *Cache) Cached() *Snapshot { return c.cached }

// CachedURL returns the URL the cached snapshot was captured at.
func (c *Cache) CachedURL() string { return c.cachedURL }

func nowMs() int64 { return time.Now().UnixMilli() }
