package app

import (
	"context"
	"time"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Refresher re-fetches every ordered token pair and overwrites the cache.
type Refresher struct {
	tokens   *token.Registry
	upstream Source
	cache    Cache
	ttl      time.Duration
	logger   logger.LoggerInterface
}

// NewRefresher creates a Refresher.
func NewRefresher(tokens *token.Registry, upstream Source, cache Cache, ttl time.Duration, log logger.LoggerInterface) *Refresher {
	return &Refresher{
		tokens:   tokens,
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		logger:   log,
	}
}

// RefreshAll fetches each pair from upstream and stores the result,
// absent quotes included. It returns ctx.Err() if cancelled midway.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	all := r.tokens.All()
	quoted := 0

	for _, from := range all {
		for _, to := range all {
			if from.Equals(to) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			t, err := r.upstream.GetTicker(ctx, from, to)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				r.logger.Warn(ctx, "ticker refresh failed", "pair", domain.PairKey(from, to), "error", err)
				t = nil
			}
			if t != nil {
				quoted++
			}
			r.cache.Set(ctx, from, to, t, r.ttl)
		}
	}

	r.logger.Info(ctx, "tickers refreshed", "pairs", len(all)*(len(all)-1), "quoted", quoted)
	return nil
}
