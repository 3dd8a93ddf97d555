package app

import (
	"context"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// FetchError reports that source could not produce a quote for from/to.
func FetchError(source string, from, to *token.Token, cause error) error {
	return apperror.External(apperror.CodeTickerUnavailable, source+" "+domain.PairKey(from, to), cause)
}

// Swallow wraps src so that fetch errors are logged and reported as absence.
// Errors after the caller's ctx ended are returned unchanged.
func Swallow(src Source, name string, log logger.LoggerInterface) Source {
	return SourceFunc(func(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
		t, err := src.GetTicker(ctx, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn(ctx, "ticker source failed", "source", name, "pair", domain.PairKey(from, to), "error", err)
			return nil, nil
		}
		return t, nil
	})
}
