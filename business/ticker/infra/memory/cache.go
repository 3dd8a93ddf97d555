// Package memory implements the ticker cache in process memory.
package memory

import (
	"context"
	"time"

	"github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/cache"
	"github.com/fd1az/reserve-relayer/internal/token"
)

var _ app.Cache = (*Cache)(nil)

// Cache stores tickers in an expiring map keyed by FROM/TO.
type Cache struct {
	store *cache.Cache[string, *domain.Ticker]
}

// New creates a Cache swept every cleanupInterval.
func New(cleanupInterval time.Duration) *Cache {
	return &Cache{store: cache.New[string, *domain.Ticker](cleanupInterval)}
}

// Set stores t, which may be nil to record absence.
func (c *Cache) Set(ctx context.Context, from, to *token.Token, t *domain.Ticker, ttl time.Duration) {
	c.store.Set(ctx, domain.PairKey(from, to), t, ttl)
}

// Get returns the stored lookup if it has not expired.
func (c *Cache) Get(ctx context.Context, from, to *token.Token) (*domain.Ticker, bool) {
	return c.store.Get(ctx, domain.PairKey(from, to))
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Close drops every entry.
func (c *Cache) Close() {
	c.store.Close()
}
