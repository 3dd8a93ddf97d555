// Package app contains the ticker sources and their composition.
package app

import (
	"context"
	"time"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Source produces a quote for a token pair. A nil ticker with a nil error
// means the source has no quote for the pair. A non-nil error is a fetch
// failure; compose with Swallow to turn it into absence.
type Source interface {
	GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, from, to *token.Token) (*domain.Ticker, error)

// GetTicker calls f.
func (f SourceFunc) GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
	return f(ctx, from, to)
}

// Cache stores lookups by direction-sensitive symbol pair. A stored nil
// ticker records that the pair had no quote. Expired entries are never
// returned.
type Cache interface {
	Set(ctx context.Context, from, to *token.Token, ticker *domain.Ticker, ttl time.Duration)
	// Get returns the cached lookup and whether an entry was found.
	Get(ctx context.Context, from, to *token.Token) (*domain.Ticker, bool)
	Clear(ctx context.Context)
}
