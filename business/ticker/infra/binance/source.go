// Package binance prices token pairs from Binance best bid/ask, streamed
// over WebSocket with a REST fallback for missing or stale symbols.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/business/ticker/domain"
	"github.com/fd1az/reserve-relayer/internal/httpclient"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
	"github.com/fd1az/reserve-relayer/internal/wsconn"
)

const (
	sourceName         = "binance"
	bookTickerEndpoint = "/api/v3/ticker/bookTicker"
	defaultStale       = 10 * time.Second
)

var _ app.Source = (*Source)(nil)

// Config holds the feed settings.
type Config struct {
	WebSocketURL string
	RESTURL      string
	Symbols      []string
	Aliases      map[string]string // token symbol -> Binance asset, e.g. WETH -> ETH
	StaleTimeout time.Duration
	RESTTimeout  time.Duration
}

type quote struct {
	mid     decimal.Decimal
	updated time.Time
}

type sourceMetrics struct {
	updates   metric.Int64Counter
	fallbacks metric.Int64Counter
}

// Source keeps the last mid price per symbol.
type Source struct {
	cfg     Config
	symbols map[string]bool
	aliases map[string]string

	conn *wsconn.Client
	rest *httpclient.Client

	mu     sync.RWMutex
	quotes map[string]quote
	now    func() time.Time

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *sourceMetrics
}

// NewSource creates a Source. Nothing is dialed until Connect.
func NewSource(cfg Config, log logger.LoggerInterface) (*Source, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("binance: at least one symbol is required")
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = defaultStale
	}

	s := &Source{
		cfg:     cfg,
		symbols: make(map[string]bool, len(cfg.Symbols)),
		aliases: make(map[string]string, len(cfg.Aliases)),
		quotes:  make(map[string]quote),
		now:     time.Now,
		logger:  log,
		tracer:  otel.Tracer("ticker.binance"),
	}

	streams := make([]string, 0, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		sym = strings.ToUpper(sym)
		s.symbols[sym] = true
		streams = append(streams, BookTickerStream(sym))
	}
	for k, v := range cfg.Aliases {
		s.aliases[strings.ToUpper(k)] = strings.ToUpper(v)
	}

	if cfg.WebSocketURL != "" {
		wsURL := strings.TrimSuffix(cfg.WebSocketURL, "/") + "/stream?streams=" + strings.Join(streams, "/")
		conn, err := wsconn.New(wsconn.DefaultConfig(wsURL, sourceName))
		if err != nil {
			return nil, err
		}
		conn.OnMessage(s.handleMessage)
		conn.OnStateChange(func(state wsconn.State, err error) {
			if err != nil {
				log.Warn(context.Background(), "binance stream state changed", "state", string(state), "error", err)
				return
			}
			log.Info(context.Background(), "binance stream state changed", "state", string(state))
		})
		s.conn = conn
	}

	if cfg.RESTURL != "" {
		rest, err := httpclient.New(
			httpclient.WithBaseURL(cfg.RESTURL),
			httpclient.WithProviderName(sourceName),
			httpclient.WithRequestTimeout(cfg.RESTTimeout),
		)
		if err != nil {
			return nil, err
		}
		s.rest = rest
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return s, nil
}

func (s *Source) initMetrics() error {
	meter := otel.Meter("ticker.binance")
	var err error
	s.metrics = &sourceMetrics{}

	if s.metrics.updates, err = meter.Int64Counter("binance_book_ticker_updates_total",
		metric.WithDescription("Book ticker updates received over the stream")); err != nil {
		return err
	}
	if s.metrics.fallbacks, err = meter.Int64Counter("binance_rest_fallbacks_total",
		metric.WithDescription("Lookups served by the REST fallback")); err != nil {
		return err
	}
	return nil
}

// Connect opens the stream, retrying with backoff until ctx ends.
func (s *Source) Connect(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.ConnectWithRetry(ctx)
}

// Connected reports whether the stream is live.
func (s *Source) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close closes the stream.
func (s *Source) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// GetTicker returns the mid price of FROM+TO, or the reciprocal of TO+FROM
// when only that market is configured.
func (s *Source) GetTicker(ctx context.Context, from, to *token.Token) (*domain.Ticker, error) {
	if from == nil || to == nil || from.Equals(to) {
		return nil, nil
	}
	base, quoteAsset := s.asset(from), s.asset(to)

	if sym := base + quoteAsset; s.symbols[sym] {
		mid, err := s.mid(ctx, sym)
		if err != nil {
			return nil, app.FetchError(sourceName, from, to, err)
		}
		if !mid.IsPositive() {
			return nil, nil
		}
		return &domain.Ticker{From: from, To: to, Price: mid}, nil
	}

	if sym := quoteAsset + base; s.symbols[sym] {
		mid, err := s.mid(ctx, sym)
		if err != nil {
			return nil, app.FetchError(sourceName, from, to, err)
		}
		if !mid.IsPositive() {
			return nil, nil
		}
		return (&domain.Ticker{From: to, To: from, Price: mid}).Reciprocal(), nil
	}

	return nil, nil
}

func (s *Source) asset(t *token.Token) string {
	if a, ok := s.aliases[t.Symbol()]; ok {
		return a
	}
	return t.Symbol()
}

func (s *Source) mid(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	q, ok := s.quotes[symbol]
	s.mu.RUnlock()

	if ok && s.now().Sub(q.updated) <= s.cfg.StaleTimeout {
		return q.mid, nil
	}
	if s.rest == nil {
		return decimal.Zero, nil
	}
	return s.fetchREST(ctx, symbol)
}

func (s *Source) fetchREST(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, span := s.tracer.Start(ctx, "binance.rest_book_ticker",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	s.metrics.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", symbol)))

	var resp BookTickerResponse
	if err := s.rest.GetJSON(ctx, bookTickerEndpoint, url.Values{"symbol": {symbol}}, &resp); err != nil {
		span.RecordError(err)
		return decimal.Zero, err
	}

	mid, ok := midPrice(resp.BidPrice, resp.AskPrice)
	if !ok {
		return decimal.Zero, nil
	}
	s.store(symbol, mid)
	return mid, nil
}

func (s *Source) store(symbol string, mid decimal.Decimal) {
	s.mu.Lock()
	s.quotes[symbol] = quote{mid: mid, updated: s.now()}
	s.mu.Unlock()
}

func (s *Source) handleMessage(ctx context.Context, msg []byte) {
	var event StreamEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		s.logger.Debug(ctx, "binance: unparseable message", "error", err)
		return
	}
	if !strings.HasSuffix(event.Stream, bookTickerSuffix) {
		return
	}

	var bt BookTickerEvent
	if err := json.Unmarshal(event.Data, &bt); err != nil {
		s.logger.Debug(ctx, "binance: bad book ticker", "stream", event.Stream, "error", err)
		return
	}

	mid, ok := midPrice(bt.BidPrice, bt.AskPrice)
	if !ok {
		return
	}
	symbol := strings.ToUpper(bt.Symbol)
	s.store(symbol, mid)
	s.metrics.updates.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", symbol)))
}
