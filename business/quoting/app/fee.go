package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	tickerApp "github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// FeePayer selects which side of an order bears the fee.
type FeePayer string

const (
	FeePayerMaker FeePayer = "maker"
	FeePayerTaker FeePayer = "taker"
)

// FeeConfig holds the fee policy.
type FeeConfig struct {
	Payer       FeePayer
	Rate        decimal.Decimal
	TokenSymbol string // reference fee token, e.g. ZRX
	Recipient   common.Address
}

// FeeService charges Rate of an order amount, priced in the reference fee
// token. The side that does not pay is always charged zero.
type FeeService struct {
	tokens  *token.Registry
	tickers tickerApp.Source
	cfg     FeeConfig
	logger  logger.LoggerInterface
}

var _ Fees = (*FeeService)(nil)

// NewFeeService creates a FeeService.
func NewFeeService(tokens *token.Registry, tickers tickerApp.Source, cfg FeeConfig, log logger.LoggerInterface) *FeeService {
	return &FeeService{tokens: tokens, tickers: tickers, cfg: cfg, logger: log}
}

// MakerFee returns the fee charged to the maker for amount of t.
func (s *FeeService) MakerFee(ctx context.Context, t *token.Token, amount *big.Int) (*big.Int, error) {
	if s.cfg.Payer != FeePayerMaker {
		return big.NewInt(0), nil
	}
	return s.fee(ctx, t, amount)
}

// TakerFee returns the fee charged to the taker for amount of t.
func (s *FeeService) TakerFee(ctx context.Context, t *token.Token, amount *big.Int) (*big.Int, error) {
	if s.cfg.Payer != FeePayerTaker {
		return big.NewInt(0), nil
	}
	return s.fee(ctx, t, amount)
}

// FeeRecipient returns the address collecting fees. It is the same for every token.
func (s *FeeService) FeeRecipient(_ context.Context, _ *token.Token) common.Address {
	return s.cfg.Recipient
}

func (s *FeeService) fee(ctx context.Context, t *token.Token, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 || !s.cfg.Rate.IsPositive() {
		return big.NewInt(0), nil
	}

	ref, err := s.tokens.GetBySymbol(s.cfg.TokenSymbol)
	if err != nil {
		return nil, err
	}
	if t.Equals(ref) {
		return token.MulDecimalFloor(amount, s.cfg.Rate), nil
	}

	ticker, err := s.tickers.GetTicker(ctx, t, ref)
	if err != nil {
		s.logger.Warn(ctx, "fee ticker unavailable", "token", t.Symbol(), "fee_token", ref.Symbol(), "error", err)
		return big.NewInt(0), nil
	}
	if ticker == nil {
		return big.NewInt(0), nil
	}

	converted := token.ConvertAmount(amount, ticker.Price, t, ref)
	return token.MulDecimalFloor(converted, s.cfg.Rate), nil
}
