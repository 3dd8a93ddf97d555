// Package domain contains the ticker model.
package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Ticker is a directional quote: Price units of To per unit of From.
type Ticker struct {
	From  *token.Token
	To    *token.Token
	Price decimal.Decimal
}

// NewTicker builds a ticker, rejecting non-positive prices.
func NewTicker(from, to *token.Token, price decimal.Decimal) (*Ticker, error) {
	if from == nil || to == nil {
		return nil, apperror.InvalidArgument("ticker token")
	}
	if !price.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidTicker,
			apperror.WithContext(PairKey(from, to)+" price "+price.String()))
	}
	return &Ticker{From: from, To: to, Price: price}, nil
}

// Reciprocal returns the ticker for the opposite direction.
func (t *Ticker) Reciprocal() *Ticker {
	return &Ticker{
		From:  t.To,
		To:    t.From,
		Price: decimal.NewFromInt(1).DivRound(t.Price, token.PricePrecision),
	}
}

// Pair returns the cache key of the ticker.
func (t *Ticker) Pair() string {
	return PairKey(t.From, t.To)
}

// PairKey is the direction-sensitive key FROM/TO.
func PairKey(from, to *token.Token) string {
	return SymbolPair(from.Symbol(), to.Symbol())
}

// SymbolPair is PairKey for raw symbols.
func SymbolPair(from, to string) string {
	return from + "/" + to
}
