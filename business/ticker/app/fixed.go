package app

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// FixedSource serves configured prices keyed by FROM/TO symbol pair. When
// only the opposite direction is configured its reciprocal is returned.
type FixedSource struct {
	prices map[string]decimal.Decimal
}

// NewFixedSource creates a FixedSource. Keys are FROM/TO symbol pairs and
// are matched case-insensitively.
func NewFixedSource(prices map[string]decimal.Decimal) *FixedSource {
	normalized := make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		normalized[strings.ToUpper(k)] = v
	}
	return &FixedSource{prices: normalized}
}

// GetTicker implements Source.
func (s *FixedSource) GetTicker(_ context.Context, from, to *token.Token) (*domain.Ticker, error) {
	if from == nil || to == nil || from.Equals(to) {
		return nil, nil
	}

	if p, ok := s.prices[domain.PairKey(from, to)]; ok && p.IsPositive() {
		return &domain.Ticker{From: from, To: to, Price: p}, nil
	}
	if p, ok := s.prices[domain.PairKey(to, from)]; ok && p.IsPositive() {
		return (&domain.Ticker{From: to, To: from, Price: p}).Reciprocal(), nil
	}
	return nil, nil
}
