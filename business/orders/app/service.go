// Package app synthesises and signs the relayer's orders from its tradable pairs.
package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	exchangeApp "github.com/fd1az/reserve-relayer/business/exchange/app"
	exchangeDomain "github.com/fd1az/reserve-relayer/business/exchange/domain"
	quotingApp "github.com/fd1az/reserve-relayer/business/quoting/app"
	quotingDomain "github.com/fd1az/reserve-relayer/business/quoting/domain"
	tickerApp "github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/pagination"
	"github.com/fd1az/reserve-relayer/internal/token"
)

const defaultConcurrency = 8

// OrderFilter narrows ListOrders. Nil fields do not filter.
type OrderFilter struct {
	ExchangeContractAddress *common.Address
	TokenAddress            *common.Address
	MakerTokenAddress       *common.Address
	TakerTokenAddress       *common.Address
	Maker                   *common.Address
	Taker                   *common.Address
	Trader                  *common.Address
	FeeRecipient            *common.Address
	Page                    *int
	PerPage                 *int
}

// Deps groups the collaborators of Service.
type Deps struct {
	Gateway     exchangeApp.Gateway
	Signer      exchangeApp.Signer
	Salts       exchangeApp.SaltSource
	Expirations exchangeApp.ExpirationSource
	Pairs       quotingApp.Pairs
	Fees        quotingApp.Fees
	Tickers     tickerApp.Source
	Tokens      *token.Registry
}

type serviceMetrics struct {
	synthesized metric.Int64Counter
	allowance   metric.Int64Counter
}

// Service lists the orders the relayer is willing to fill. Every order is
// built on request and signed by the relayer.
type Service struct {
	deps        Deps
	concurrency int
	logger      logger.LoggerInterface
	tracer      trace.Tracer
	metrics     *serviceMetrics

	pending sync.WaitGroup
}

// NewService creates a Service. concurrency bounds the pairs synthesised at
// once; zero picks a default.
func NewService(deps Deps, concurrency int, log logger.LoggerInterface) (*Service, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	s := &Service{
		deps:        deps,
		concurrency: concurrency,
		logger:      log,
		tracer:      otel.Tracer("orders"),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return s, nil
}

func (s *Service) initMetrics() error {
	meter := otel.Meter("orders")
	var err error
	s.metrics = &serviceMetrics{}

	if s.metrics.synthesized, err = meter.Int64Counter("orders_synthesized_total",
		metric.WithDescription("Signed orders produced")); err != nil {
		return err
	}
	if s.metrics.allowance, err = meter.Int64Counter("orders_allowance_checks_total",
		metric.WithDescription("Allowance checks by result")); err != nil {
		return err
	}
	return nil
}

// ListOrders returns one signed order per matching pair. A filter on the
// exchange contract, maker or fee recipient that does not match the relayer
// yields no orders. When both token sides are filtered, orders are sorted by
// ascending price, ties kept in pair order. A signing failure aborts the
// whole listing.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]exchangeDomain.SignedOrder, error) {
	ctx, span := s.tracer.Start(ctx, "orders.list")
	defer span.End()

	contract := s.deps.Gateway.CurrentContractAddress()
	relayer := s.deps.Signer.Address()
	feeRecipient := s.deps.Fees.FeeRecipient(ctx, nil)

	if mismatch(f.ExchangeContractAddress, contract) || mismatch(f.Maker, relayer) || mismatch(f.FeeRecipient, feeRecipient) {
		span.SetAttributes(attribute.Bool("orders.identity_mismatch", true))
		return pagination.Paginate([]exchangeDomain.SignedOrder{}, f.Page, f.PerPage)
	}

	pairs, err := s.deps.Pairs.ListPairs(ctx, nil, nil, nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	pairs = filterPairs(pairs, f)

	taker := common.Address{}
	switch {
	case f.Taker != nil:
		taker = *f.Taker
	case f.Trader != nil:
		taker = *f.Trader
	}

	results := make([]*exchangeDomain.SignedOrder, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pair := range pairs {
		g.Go(func() error {
			order, err := s.synthesize(gctx, pair, contract, relayer, taker)
			if err != nil {
				return err
			}
			results[i] = order
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	orders := make([]exchangeDomain.SignedOrder, 0, len(results))
	for _, o := range results {
		if o != nil {
			orders = append(orders, *o)
		}
	}

	if f.MakerTokenAddress != nil && f.TakerTokenAddress != nil {
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].Price().LessThan(orders[j].Price())
		})
	}

	span.SetAttributes(attribute.Int("orders.pairs", len(pairs)), attribute.Int("orders.count", len(orders)))
	return pagination.Paginate(orders, f.Page, f.PerPage)
}

// Wait blocks until background allowance checks have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// synthesize builds and signs the order selling pair.TokenA for
// pair.TokenB. A pair without a ticker yields nil.
func (s *Service) synthesize(ctx context.Context, pair quotingDomain.TokenPairTradeInfo, contract, relayer, taker common.Address) (*exchangeDomain.SignedOrder, error) {
	makerToken, err := s.deps.Tokens.GetByAddress(pair.TokenA.Address)
	if err != nil {
		return nil, err
	}
	takerToken, err := s.deps.Tokens.GetByAddress(pair.TokenB.Address)
	if err != nil {
		return nil, err
	}
	makerAmount := pair.TokenA.MaxAmount

	s.ensureAllowance(ctx, makerAmount, makerToken, relayer)

	ticker, err := s.deps.Tickers.GetTicker(ctx, makerToken, takerToken)
	if err != nil {
		s.logger.Warn(ctx, "order ticker unavailable", "maker_token", makerToken.Symbol(), "taker_token", takerToken.Symbol(), "error", err)
		return nil, nil
	}
	if ticker == nil {
		return nil, nil
	}
	takerAmount := token.ConvertAmount(makerAmount, ticker.Price, makerToken, takerToken)

	makerFee, err := s.deps.Fees.MakerFee(ctx, makerToken, makerAmount)
	if err != nil {
		return nil, err
	}
	takerFee, err := s.deps.Fees.TakerFee(ctx, takerToken, takerAmount)
	if err != nil {
		return nil, err
	}
	salt, err := s.deps.Salts.Salt()
	if err != nil {
		return nil, err
	}

	order := exchangeDomain.Order{
		ExchangeContract: contract,
		Maker:            relayer,
		Taker:            taker,
		MakerToken:       makerToken.Address(),
		TakerToken:       takerToken.Address(),
		FeeRecipient:     s.deps.Fees.FeeRecipient(ctx, makerToken),
		MakerTokenAmount: new(big.Int).Set(makerAmount),
		TakerTokenAmount: takerAmount,
		MakerFee:         makerFee,
		TakerFee:         takerFee,
		Expiration:       s.deps.Expirations.ExpirationTimestamp(),
		Salt:             salt,
	}

	signed, err := s.deps.Signer.SignOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	s.metrics.synthesized.Add(ctx, 1, metric.WithAttributes(
		attribute.String("maker_token", makerToken.Symbol()),
		attribute.String("taker_token", takerToken.Symbol()),
	))
	return &signed, nil
}

// ensureAllowance runs the allowance check in the background. Its outcome
// never affects the listing.
func (s *Service) ensureAllowance(ctx context.Context, amount *big.Int, t *token.Token, owner common.Address) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		result := "ok"
		if err := s.deps.Gateway.EnsureAllowance(ctx, amount, t.Address(), owner); err != nil {
			result = "failed"
			s.logger.Warn(ctx, "allowance check failed", "token", t.Symbol(), "amount", amount.String(), "error", err)
		}
		s.metrics.allowance.Add(ctx, 1, metric.WithAttributes(
			attribute.String("token", t.Symbol()),
			attribute.String("result", result),
		))
	}()
}

func mismatch(filter *common.Address, actual common.Address) bool {
	return filter != nil && *filter != actual
}

func filterPairs(pairs []quotingDomain.TokenPairTradeInfo, f OrderFilter) []quotingDomain.TokenPairTradeInfo {
	out := make([]quotingDomain.TokenPairTradeInfo, 0, len(pairs))
	for _, p := range pairs {
		if f.TokenAddress != nil && !p.Touches(*f.TokenAddress) {
			continue
		}
		if f.MakerTokenAddress != nil && p.TokenA.Address != *f.MakerTokenAddress {
			continue
		}
		if f.TakerTokenAddress != nil && p.TokenB.Address != *f.TakerTokenAddress {
			continue
		}
		out = append(out, p)
	}
	return out
}
