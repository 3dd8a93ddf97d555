// Package uniswap prices token pairs from on-chain Uniswap V3 pools through
// the QuoterV2 contract.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/circuitbreaker"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

const sourceName = "uniswap"

var _ app.Source = (*Source)(nil)

// Config holds the quoter settings.
type Config struct {
	Quoter   common.Address
	FeeTiers []int
}

// Source quotes one display unit of from against every fee tier and keeps
// the best output.
type Source struct {
	caller   ethereum.ContractCaller
	quoter   common.Address
	abi      abi.ABI
	feeTiers []int

	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	quotes  metric.Int64Counter
	failure metric.Int64Counter
}

// NewSource creates a Source calling the quoter through caller.
func NewSource(caller ethereum.ContractCaller, cfg Config, log logger.LoggerInterface) (*Source, error) {
	parsed, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}

	tiers := cfg.FeeTiers
	if len(tiers) == 0 {
		tiers = []int{FeeTier005, FeeTier030, FeeTier100}
	}

	meter := otel.Meter("ticker.uniswap")
	quotes, err := meter.Int64Counter("uniswap_quotes_total", metric.WithDescription("Quoter lookups"))
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	failure, err := meter.Int64Counter("uniswap_quote_errors_total", metric.WithDescription("Quoter lookups without any pool"))
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return &Source{
		caller:   caller,
		quoter:   cfg.Quoter,
		abi:      parsed,
		feeTiers: tiers,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("uniswap-quoter")),
		logger:   log,
		tracer:   otel.Tracer("ticker.uniswap"),
		quotes:   quotes,
		failure:  failure,
	}, nil
}

// GetTicker returns the output of selling one unit of from for to. When no
// fee tier has a pool the lookup fails with CodeTickerUnavailable.
func (s *Source) GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
	ctx, span := s.tracer.Start(ctx, "uniswap.get_ticker",
		trace.WithAttributes(attribute.String("pair", domain.PairKey(from, to))))
	defer span.End()

	s.quotes.Add(ctx, 1)
	amountIn := token.Pow10(int(from.Decimals()))

	var best *big.Int
	var bestTier int
	var lastErr error
	for _, tier := range s.feeTiers {
		out, err := s.quote(ctx, from.Address(), to.Address(), amountIn, tier)
		if err != nil {
			lastErr = err
			span.AddEvent("fee_tier_failed", trace.WithAttributes(
				attribute.Int("fee_tier", tier),
				attribute.String("error", err.Error()),
			))
			continue
		}
		if best == nil || out.Cmp(best) > 0 {
			best, bestTier = out, tier
		}
	}

	if best == nil || best.Sign() <= 0 {
		s.failure.Add(ctx, 1)
		span.SetStatus(codes.Error, "no pool")
		if lastErr == nil {
			lastErr = apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("empty pool"))
		}
		return nil, app.FetchError(sourceName, from, to, lastErr)
	}

	price := token.FromBaseUnits(to, best)
	span.SetAttributes(attribute.String("price", price.String()), attribute.Int("fee_tier", bestTier))
	s.logger.Debug(ctx, "uniswap quote", "pair", domain.PairKey(from, to), "price", price.String(), "fee_tier", bestTier)

	return domain.NewTicker(from, to, price)
}

func (s *Source) quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, tier int) (*big.Int, error) {
	data, err := s.abi.Pack(quoteMethod, quoteParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(tier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := s.cb.Execute(func() ([]byte, error) {
		return s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.quoter, Data: data}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter fee tier %d", tier)))
	}

	outputs, err := s.abi.Unpack(quoteMethod, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}
	out, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amountOut type %T", outputs[0])
	}
	return out, nil
}
