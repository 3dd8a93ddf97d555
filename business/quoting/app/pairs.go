package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/business/quoting/domain"
	tickerApp "github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/pagination"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// TokenPairService enumerates the pairs the relayer can fill from its
// liquidity.
type TokenPairService struct {
	tokens    *token.Registry
	tickers   tickerApp.Source
	liquidity Liquidity
	logger    logger.LoggerInterface
	tracer    trace.Tracer
}

var _ Pairs = (*TokenPairService)(nil)

// NewTokenPairService creates a TokenPairService.
func NewTokenPairService(tokens *token.Registry, tickers tickerApp.Source, liquidity Liquidity, log logger.LoggerInterface) *TokenPairService {
	return &TokenPairService{
		tokens:    tokens,
		tickers:   tickers,
		liquidity: liquidity,
		logger:    log,
		tracer:    otel.Tracer("quoting.pairs"),
	}
}

// ListPairs returns every pair touching tokenA or tokenB (all pairs when
// neither is given), paginated.
func (s *TokenPairService) ListPairs(ctx context.Context, tokenA, tokenB *common.Address, page, perPage *int) ([]domain.TokenPairTradeInfo, error) {
	ctx, span := s.tracer.Start(ctx, "pairs.list")
	defer span.End()

	all, err := s.allPairs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	filtered := make([]domain.TokenPairTradeInfo, 0, len(all))
	for _, p := range all {
		switch {
		case tokenA != nil && tokenB != nil:
			if p.Touches(*tokenA) || p.Touches(*tokenB) {
				filtered = append(filtered, p)
			}
		case tokenA != nil:
			if p.Touches(*tokenA) {
				filtered = append(filtered, p)
			}
		case tokenB != nil:
			if p.Touches(*tokenB) {
				filtered = append(filtered, p)
			}
		default:
			filtered = append(filtered, p)
		}
	}

	span.SetAttributes(attribute.Int("pairs.total", len(all)), attribute.Int("pairs.filtered", len(filtered)))
	return pagination.Paginate(filtered, page, perPage)
}

// GetPair returns the pair selling bought and buying sold, or nil.
func (s *TokenPairService) GetPair(ctx context.Context, bought, sold common.Address) (*domain.TokenPairTradeInfo, error) {
	pairs, err := s.ListPairs(ctx, &bought, &sold, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if p.TokenA.Address == bought && p.TokenB.Address == sold {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *TokenPairService) allPairs(ctx context.Context) ([]domain.TokenPairTradeInfo, error) {
	all := s.tokens.All()
	pairs := make([]domain.TokenPairTradeInfo, 0, len(all)*(len(all)-1))

	for _, t := range all {
		pool, err := s.liquidity.AvailableAmount(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn(ctx, "liquidity unavailable, skipping token", "token", t.Symbol(), "error", err)
			continue
		}
		if pool.IsEmpty() {
			continue
		}

		for _, other := range all {
			if other.Equals(pool.Token) {
				continue
			}
			if p, ok := s.buildPair(ctx, pool, other); ok {
				pairs = append(pairs, p)
			}
		}
	}
	return pairs, nil
}

// buildPair sizes the other side of pool at the current ticker. Above a
// price of one both bounds are converted. At or below one only the maximum
// is converted and the minimum is carried over, provided the minimum bought
// at that price still fits under the pool maximum.
func (s *TokenPairService) buildPair(ctx context.Context, pool domain.TokenPool, other *token.Token) (domain.TokenPairTradeInfo, bool) {
	ticker, err := s.tickers.GetTicker(ctx, pool.Token, other)
	if err != nil {
		s.logger.Warn(ctx, "pair ticker unavailable", "from", pool.Token.Symbol(), "to", other.Symbol(), "error", err)
		return domain.TokenPairTradeInfo{}, false
	}
	if ticker == nil || !ticker.Price.IsPositive() {
		return domain.TokenPairTradeInfo{}, false
	}

	sideA := domain.PairSide{
		Address:   pool.Token.Address(),
		MinAmount: pool.MinimumAmount,
		MaxAmount: pool.MaximumAmount,
		Precision: pool.Precision,
	}

	if ticker.Price.GreaterThan(decimal.NewFromInt(1)) {
		return domain.TokenPairTradeInfo{
			TokenA: sideA,
			TokenB: domain.PairSide{
				Address:   other.Address(),
				MinAmount: token.ConvertAmount(pool.MinimumAmount, ticker.Price, pool.Token, other),
				MaxAmount: token.ConvertAmount(pool.MaximumAmount, ticker.Price, pool.Token, other),
				Precision: pool.Precision,
			},
		}, true
	}

	minBought := decimal.NewFromBigInt(pool.MinimumAmount, 0).Div(ticker.Price).Floor().BigInt()
	minBought = token.RoundToPrecision(minBought, pool.Token.Decimals(), pool.Precision)
	if minBought.Cmp(pool.MaximumAmount) >= 0 {
		return domain.TokenPairTradeInfo{}, false
	}

	return domain.TokenPairTradeInfo{
		TokenA: sideA,
		TokenB: domain.PairSide{
			Address:   other.Address(),
			MinAmount: new(big.Int).Set(pool.MinimumAmount),
			MaxAmount: token.ConvertAmount(pool.MaximumAmount, ticker.Price, pool.Token, other),
			Precision: pool.Precision,
		},
	}, true
}
