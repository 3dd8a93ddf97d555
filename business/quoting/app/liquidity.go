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
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// DefaultPrecision is the number of display decimals kept in liquidity amounts.
const DefaultPrecision = 6

// LiquidityConfig holds the liquidity policy.
type LiquidityConfig struct {
	Percentage    decimal.Decimal // share of holdings offered, e.g. 0.02
	MinimumAmount decimal.Decimal // display units, scaled per token
	Precision     int
}

// LiquidityService offers a fixed share of the relayer's holdings.
type LiquidityService struct {
	balances BalanceReader
	owner    common.Address
	cfg      LiquidityConfig
	tracer   trace.Tracer
}

var _ Liquidity = (*LiquidityService)(nil)

// NewLiquidityService creates a LiquidityService reading owner's balances.
func NewLiquidityService(balances BalanceReader, owner common.Address, cfg LiquidityConfig) *LiquidityService {
	if cfg.Precision <= 0 {
		cfg.Precision = DefaultPrecision
	}
	return &LiquidityService{
		balances: balances,
		owner:    owner,
		cfg:      cfg,
		tracer:   otel.Tracer("quoting.liquidity"),
	}
}

// AvailableAmount returns the pool for t. The maximum is the configured share
// of the balance, floored and truncated to the configured precision. When it
// does not exceed the minimum the pool is empty.
func (s *LiquidityService) AvailableAmount(ctx context.Context, t *token.Token) (domain.TokenPool, error) {
	if t == nil {
		return domain.TokenPool{}, apperror.InvalidArgument("token is required")
	}

	ctx, span := s.tracer.Start(ctx, "liquidity.available_amount",
		trace.WithAttributes(attribute.String("token", t.Symbol())))
	defer span.End()

	balance, err := s.balances.Balance(ctx, s.owner, t)
	if err != nil {
		span.RecordError(err)
		return domain.TokenPool{}, err
	}

	available := token.MulDecimalFloor(balance, s.cfg.Percentage)
	available = token.RoundToPrecision(available, t.Decimals(), s.cfg.Precision)

	threshold := s.minimum(t)
	if available.Cmp(threshold) <= 0 {
		return domain.EmptyPool(t, s.cfg.Precision), nil
	}

	return domain.TokenPool{
		Token:         t,
		MinimumAmount: threshold,
		MaximumAmount: available,
		Precision:     s.cfg.Precision,
	}, nil
}

// ConvertedAmount converts amount of from into base units of to at price.
func (s *LiquidityService) ConvertedAmount(amount *big.Int, price decimal.Decimal, from, to *token.Token) *big.Int {
	return token.ConvertAmount(amount, price, from, to)
}

// ConvertedPrice returns the price implied by exchanging amountFrom for amountTo.
func (s *LiquidityService) ConvertedPrice(amountFrom, amountTo *big.Int, from, to *token.Token) decimal.Decimal {
	return token.ImpliedPrice(amountFrom, amountTo, from, to)
}

func (s *LiquidityService) minimum(t *token.Token) *big.Int {
	if !s.cfg.MinimumAmount.IsPositive() {
		return big.NewInt(0)
	}
	return s.cfg.MinimumAmount.Shift(int32(t.Decimals())).Truncate(0).BigInt()
}
