// Package relayer prices token pairs from another relayer's order book,
// using the best resting order of the standard relayer HTTP API.
package relayer

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/circuitbreaker"
	"github.com/fd1az/reserve-relayer/internal/httpclient"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/ratelimit"
	"github.com/fd1az/reserve-relayer/internal/token"
)

const (
	sourceName     = "relayer"
	ordersEndpoint = "/v0/orders"
)

var _ app.Source = (*Source)(nil)

// Config holds the feed settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, <= 0 disables throttling
	Burst     int
}

// apiOrder is the subset of a v0 signed order the feed reads.
type apiOrder struct {
	MakerTokenAddress string `json:"makerTokenAddress"`
	TakerTokenAddress string `json:"takerTokenAddress"`
	MakerTokenAmount  string `json:"makerTokenAmount"`
	TakerTokenAmount  string `json:"takerTokenAmount"`
}

// Source queries the external order book. Fetch failures are returned as
// errors; the composition decides how to treat them.
type Source struct {
	client  *httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]apiOrder]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewSource creates a Source.
func NewSource(cfg Config, log logger.LoggerInterface) (*Source, error) {
	client, err := httpclient.New(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProviderName(sourceName),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create relayer feed client: %w", err)
	}

	return &Source{
		client:  client,
		limiter: ratelimit.New(cfg.RateLimit, cfg.Burst),
		cb:      circuitbreaker.New[[]apiOrder](circuitbreaker.DefaultConfig("relayer-feed")),
		logger:  log,
		tracer:  otel.Tracer("ticker.relayer"),
	}, nil
}

// GetTicker prices from→to from the best order selling `to` for `from`.
func (s *Source) GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
	ctx, span := s.tracer.Start(ctx, "relayer.get_ticker",
		trace.WithAttributes(attribute.String("pair", domain.PairKey(from, to))))
	defer span.End()

	if err := s.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app.FetchError(sourceName, from, to, err)
	}

	query := url.Values{}
	query.Set("makerTokenAddress", to.Address().Hex())
	query.Set("takerTokenAddress", from.Address().Hex())
	query.Set("page", "1")
	query.Set("per_page", "1")

	orders, err := s.cb.Execute(func() ([]apiOrder, error) {
		var out []apiOrder
		err := s.client.GetJSON(ctx, ordersEndpoint, query, &out)
		return out, err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app.FetchError(sourceName, from, to, err)
	}
	if len(orders) == 0 {
		s.logger.Debug(ctx, "no resting order", "pair", domain.PairKey(from, to))
		return nil, nil
	}

	best := orders[0]
	makerAmount, ok1 := new(big.Int).SetString(best.MakerTokenAmount, 10)
	takerAmount, ok2 := new(big.Int).SetString(best.TakerTokenAmount, 10)
	if !ok1 || !ok2 || makerAmount.Sign() <= 0 || takerAmount.Sign() <= 0 {
		err := fmt.Errorf("malformed order amounts %q/%q", best.MakerTokenAmount, best.TakerTokenAmount)
		span.SetStatus(codes.Error, err.Error())
		return nil, app.FetchError(sourceName, from, to, err)
	}

	// the maker sells `to` and the taker pays `from`
	price := token.ImpliedPrice(takerAmount, makerAmount, from, to)
	if !price.IsPositive() {
		return nil, nil
	}

	span.SetAttributes(attribute.String("price", price.String()))
	return &domain.Ticker{From: from, To: to, Price: price}, nil
}
