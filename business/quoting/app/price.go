package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/business/quoting/domain"
	tickerApp "github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// PriceService quotes a token pair against the relayer's liquidity.
type PriceService struct {
	tokens    *token.Registry
	tickers   tickerApp.Source
	liquidity Liquidity
	logger    logger.LoggerInterface
}

// NewPriceService creates a PriceService.
func NewPriceService(tokens *token.Registry, tickers tickerApp.Source, liquidity Liquidity, log logger.LoggerInterface) *PriceService {
	return &PriceService{tokens: tokens, tickers: tickers, liquidity: liquidity, logger: log}
}

// CalculatePrice quotes from -> to. The envelope is that of from; to amounts
// are from amounts times the price. Without a ticker the price is zero.
// trader is accepted for API compatibility and does not affect the quote.
func (s *PriceService) CalculatePrice(ctx context.Context, fromAddr, toAddr, trader common.Address) (domain.PriceQuote, error) {
	from, err := s.tokens.GetByAddress(fromAddr)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	to, err := s.tokens.GetByAddress(toAddr)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	price := decimal.Zero
	ticker, err := s.tickers.GetTicker(ctx, from, to)
	if err != nil {
		s.logger.Warn(ctx, "price ticker unavailable", "from", from.Symbol(), "to", to.Symbol(), "error", err)
	} else if ticker != nil {
		price = ticker.Price
	}

	pool, err := s.liquidity.AvailableAmount(ctx, from)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	maxFrom := token.FromBaseUnits(from, pool.MaximumAmount)
	minFrom := token.FromBaseUnits(from, pool.MinimumAmount)

	return domain.PriceQuote{
		TokenFrom:     from.Address(),
		TokenTo:       to.Address(),
		Price:         price,
		MaxAmountFrom: maxFrom,
		MaxAmountTo:   maxFrom.Mul(price),
		MinAmountFrom: minFrom,
		MinAmountTo:   minFrom.Mul(price),
	}, nil
}
