// Package cache provides an in-process key/value cache with per-entry TTL.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed view over go-cache. Expired entries are never returned:
// go-cache drops them on read and its janitor sweeps them every
// cleanupInterval.
type Cache[K ~string, V any] struct {
	store *gocache.Cache
}

// New creates a Cache. A cleanupInterval <= 0 disables the janitor.
func New[K ~string, V any](cleanupInterval time.Duration) *Cache[K, V] {
	return &Cache[K, V]{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	raw, ok := c.store.Get(string(key))
	if !ok {
		var zero V
		return zero, false
	}
	v, _ := raw.(V)
	return v, true
}

// Set stores value under key, replacing any previous entry. A ttl <= 0
// keeps the entry until it is deleted.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(string(key), value, ttl)
}

// ExpiresAt reports when key expires, the zero time for entries without a
// ttl. ok is false for missing or expired keys.
func (c *Cache[K, V]) ExpiresAt(_ context.Context, key K) (time.Time, bool) {
	_, exp, ok := c.store.GetWithExpiration(string(key))
	return exp, ok
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.store.Delete(string(key))
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear(_ context.Context) {
	c.store.Flush()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	return c.store.ItemCount()
}

// Close drops every entry. go-cache stops its janitor once the cache is
// no longer referenced.
func (c *Cache[K, V]) Close() {
	c.store.Flush()
}
