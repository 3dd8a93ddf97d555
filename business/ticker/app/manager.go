package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// WeightedSource is one input of a Manager.
type WeightedSource struct {
	Name   string
	Source Source
	Weight decimal.Decimal
}

// Manager blends several sources into one quote: the sum of price × weight
// over every source. An absent or failing source contributes zero. When no
// source has a quote the manager reports absence rather than a zero price.
// A lookup cut short by ctx returns ctx.Err() instead.
type Manager struct {
	sources []WeightedSource
	logger  logger.LoggerInterface
}

// NewManager creates a Manager.
func NewManager(log logger.LoggerInterface, sources ...WeightedSource) *Manager {
	return &Manager{sources: sources, logger: log}
}

// GetTicker implements Source.
func (m *Manager) GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
	total := decimal.Zero
	quoted := false

	for _, ws := range m.sources {
		t, err := ws.Source.GetTicker(ctx, from, to)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			m.logger.Warn(ctx, "ticker source failed", "source", ws.Name, "pair", domain.PairKey(from, to), "error", err)
			continue
		}
		if t == nil {
			continue
		}
		quoted = true
		total = total.Add(t.Price.Mul(ws.Weight))
	}

	if !quoted || !total.IsPositive() {
		return nil, nil
	}
	return &domain.Ticker{From: from, To: to, Price: total}, nil
}
