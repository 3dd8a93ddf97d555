// Package redis implements the ticker cache on Redis so several relayer
// instances share one set of quotes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/redisclient"
	"github.com/fd1az/reserve-relayer/internal/token"
)

var _ app.Cache = (*Cache)(nil)

const namespace = "ticker"

// entry is the stored JSON value. Absent marks a cached "no quote".
type entry struct {
	Price  string `json:"price,omitempty"`
	Absent bool   `json:"absent,omitempty"`
}

// Cache stores tickers as JSON strings with native key expiry. Redis errors
// are logged and read as misses.
type Cache struct {
	rdb    redis.UniversalClient
	prefix string
	logger logger.LoggerInterface
}

// New creates a Cache with keys under prefix.
func New(rdb redis.UniversalClient, prefix string, log logger.LoggerInterface) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, logger: log}
}

func (c *Cache) key(from, to *token.Token) string {
	return redisclient.Key(c.prefix, namespace, domain.PairKey(from, to))
}

// Set stores t, or an absence marker when t is nil. A ttl <= 0 never expires.
func (c *Cache) Set(ctx context.Context, from, to *token.Token, t *domain.Ticker, ttl time.Duration) {
	e := entry{Absent: true}
	if t != nil {
		e = entry{Price: t.Price.String()}
	}

	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Error(ctx, "ticker cache marshal failed", "pair", domain.PairKey(from, to), "error", err)
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, c.key(from, to), data, ttl).Err(); err != nil {
		c.logger.Warn(ctx, "ticker cache write failed", "pair", domain.PairKey(from, to), "error", err)
	}
}

// Get returns the stored lookup. Missing keys, Redis errors and corrupt
// values all read as a miss.
func (c *Cache) Get(ctx context.Context, from, to *token.Token) (*domain.Ticker, bool) {
	data, err := c.rdb.Get(ctx, c.key(from, to)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "ticker cache read failed", "pair", domain.PairKey(from, to), "error", err)
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn(ctx, "ticker cache value corrupt", "pair", domain.PairKey(from, to), "error", err)
		return nil, false
	}
	if e.Absent {
		return nil, true
	}

	price, err := decimal.NewFromString(e.Price)
	if err != nil || !price.IsPositive() {
		c.logger.Warn(ctx, "ticker cache price invalid", "pair", domain.PairKey(from, to), "price", e.Price)
		return nil, false
	}
	return &domain.Ticker{From: from, To: to, Price: price}, true
}

// Clear removes every ticker key under the prefix.
func (c *Cache) Clear(ctx context.Context) {
	n, err := redisclient.DeleteByPattern(ctx, c.rdb, redisclient.Key(c.prefix, namespace, "*"))
	if err != nil {
		c.logger.Warn(ctx, "ticker cache clear failed", "error", err)
		return
	}
	c.logger.Debug(ctx, "ticker cache cleared", "keys", n)
}

// Ping reports whether Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
