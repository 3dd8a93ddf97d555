// Package ethereum implements the exchange gateway against an Ethereum node.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/business/exchange/app"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/cache"
	"github.com/fd1az/reserve-relayer/internal/circuitbreaker"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

const (
	tracerName = "exchange.gateway"
	meterName  = "exchange.gateway"
)

var _ app.Gateway = (*Gateway)(nil)

// ContractCaller is the read-only slice of ethclient.Client the gateway needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config holds gateway settings.
type Config struct {
	ExchangeAddress   common.Address
	ProxyAddress      common.Address
	BalanceCacheTTL   time.Duration
	AllowanceCacheTTL time.Duration // sufficient allowances are not re-read within this window
	CallTimeout       time.Duration
}

type gatewayMetrics struct {
	calls      metric.Int64Counter
	callErrors metric.Int64Counter
	cacheHits  metric.Int64Counter
	shortfalls metric.Int64Counter
}

// Gateway reads balances and allowances through ERC-20 view calls.
type Gateway struct {
	caller ContractCaller
	cfg    Config
	erc20  abi.ABI
	logger logger.LoggerInterface

	balances   *cache.Cache[string, *big.Int]
	allowances *cache.Cache[string, *big.Int]
	cb         *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// NewGateway creates a Gateway.
func NewGateway(caller ContractCaller, cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	g := &Gateway{
		caller: caller,
		cfg:    cfg,
		erc20:  parsed,
		logger: log,
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("ethereum-erc20")),
		tracer: otel.Tracer(tracerName),
	}
	if cfg.BalanceCacheTTL > 0 {
		g.balances = cache.New[string, *big.Int](cfg.BalanceCacheTTL)
	}
	if cfg.AllowanceCacheTTL > 0 {
		g.allowances = cache.New[string, *big.Int](cfg.AllowanceCacheTTL)
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	g.metrics = &gatewayMetrics{}

	if g.metrics.calls, err = meter.Int64Counter("exchange_gateway_calls_total",
		metric.WithDescription("ERC-20 view calls issued")); err != nil {
		return err
	}
	if g.metrics.callErrors, err = meter.Int64Counter("exchange_gateway_call_errors_total",
		metric.WithDescription("ERC-20 view calls that failed")); err != nil {
		return err
	}
	if g.metrics.cacheHits, err = meter.Int64Counter("exchange_gateway_balance_cache_hits_total",
		metric.WithDescription("Balance lookups served from cache")); err != nil {
		return err
	}
	if g.metrics.shortfalls, err = meter.Int64Counter("exchange_gateway_allowance_shortfalls_total",
		metric.WithDescription("Allowance checks below the order amount")); err != nil {
		return err
	}
	return nil
}

// CurrentContractAddress returns the configured exchange contract.
func (g *Gateway) CurrentContractAddress() common.Address {
	return g.cfg.ExchangeAddress
}

// Balance returns owner's balance of tok, cached for BalanceCacheTTL.
func (g *Gateway) Balance(ctx context.Context, owner common.Address, tok *token.Token) (*big.Int, error) {
	if tok == nil {
		return nil, apperror.InvalidArgument("token")
	}

	key := owner.Hex() + ":" + tok.Address().Hex()
	if g.balances != nil {
		if v, ok := g.balances.Get(ctx, key); ok {
			g.metrics.cacheHits.Add(ctx, 1)
			return new(big.Int).Set(v), nil
		}
	}

	ctx, span := g.tracer.Start(ctx, "gateway.balance_of",
		trace.WithAttributes(
			attribute.String("owner", owner.Hex()),
			attribute.String("token", tok.Symbol()),
		),
	)
	defer span.End()

	balance, err := g.callUint256(ctx, tok.Address(), "balanceOf", owner)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if g.balances != nil {
		g.balances.Set(ctx, key, new(big.Int).Set(balance), g.cfg.BalanceCacheTTL)
	}
	span.SetAttributes(attribute.String("balance", balance.String()))
	return balance, nil
}

// EnsureAllowance verifies that owner approved at least amount to the proxy.
// A shortfall is logged, counted and returned; no transaction is sent.
func (g *Gateway) EnsureAllowance(ctx context.Context, amount *big.Int, tokenAddress, owner common.Address) error {
	key := owner.Hex() + ":" + tokenAddress.Hex()
	if g.allowances != nil {
		if v, ok := g.allowances.Get(ctx, key); ok && v.Cmp(amount) >= 0 {
			g.metrics.cacheHits.Add(ctx, 1)
			return nil
		}
	}

	ctx, span := g.tracer.Start(ctx, "gateway.ensure_allowance",
		trace.WithAttributes(
			attribute.String("owner", owner.Hex()),
			attribute.String("token", tokenAddress.Hex()),
			attribute.String("amount", amount.String()),
		),
	)
	defer span.End()

	allowance, err := g.callUint256(ctx, tokenAddress, "allowance", owner, g.cfg.ProxyAddress)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if allowance.Cmp(amount) < 0 {
		g.metrics.shortfalls.Add(ctx, 1, metric.WithAttributes(attribute.String("token", tokenAddress.Hex())))
		g.logger.Warn(ctx, "allowance below order amount",
			"token", tokenAddress.Hex(),
			"owner", owner.Hex(),
			"allowance", allowance.String(),
			"required", amount.String(),
		)
		return apperror.New(apperror.CodeInsufficientAllowance,
			apperror.WithContext(fmt.Sprintf("%s allowance %s < %s", tokenAddress.Hex(), allowance, amount)))
	}

	if g.allowances != nil {
		g.allowances.Set(ctx, key, allowance, g.cfg.AllowanceCacheTTL)
	}
	return nil
}

func (g *Gateway) callUint256(ctx context.Context, contract common.Address, method string, args ...any) (*big.Int, error) {
	data, err := g.erc20.Pack(method, args...)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeContractCallFailed, method, err)
	}

	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}

	g.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	out, err := g.cb.Execute(func() ([]byte, error) {
		return g.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	})
	if err != nil {
		g.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		if apperror.IsCode(err, apperror.CodeCircuitOpen) {
			return nil, err
		}
		return nil, apperror.External(apperror.CodeContractCallFailed, method+" "+contract.Hex(), err)
	}

	values, err := g.erc20.Unpack(method, out)
	if err != nil || len(values) != 1 {
		return nil, apperror.Internal(apperror.CodeContractCallFailed, "unpack "+method, err)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, apperror.Internal(apperror.CodeContractCallFailed, "unpack "+method,
			fmt.Errorf("unexpected type %T", values[0]))
	}
	return v, nil
}

// Close stops the cache janitors.
func (g *Gateway) Close() {
	if g.balances != nil {
		g.balances.Close()
	}
	if g.allowances != nil {
		g.allowances.Close()
	}
}
