package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// CachedSource answers from the cache and falls back to upstream on a miss.
// Upstream results are cached even when absent, so a pair without a quote is
// not re-fetched until the entry expires. A lookup whose ctx ended is never
// cached.
type CachedSource struct {
	cache    Cache
	upstream Source
	ttl      time.Duration
	logger   logger.LoggerInterface

	lookups metric.Int64Counter
}

// NewCachedSource creates a CachedSource.
func NewCachedSource(cache Cache, upstream Source, ttl time.Duration, log logger.LoggerInterface) *CachedSource {
	lookups, _ := otel.Meter("ticker").Int64Counter("ticker_cache_lookups_total",
		metric.WithDescription("Ticker cache lookups by result"))
	return &CachedSource{
		cache:    cache,
		upstream: upstream,
		ttl:      ttl,
		logger:   log,
		lookups:  lookups,
	}
}

// GetTicker implements Source. Upstream errors are logged and cached as absence.
func (s *CachedSource) GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
	if t, ok := s.cache.Get(ctx, from, to); ok {
		s.record(ctx, "hit")
		return t, nil
	}
	s.record(ctx, "miss")

	t, err := s.upstream.GetTicker(ctx, from, to)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		s.logger.Warn(ctx, "ticker upstream failed", "pair", domain.PairKey(from, to), "error", err)
		t = nil
	}

	s.cache.Set(ctx, from, to, t, s.ttl)
	return t, nil
}

func (s *CachedSource) record(ctx context.Context, result string) {
	if s.lookups != nil {
		s.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}
