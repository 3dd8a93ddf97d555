package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/token"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var (
	zrx  = token.New(common.HexToAddress("0xe41d2489571d322189246dafa5ebde1f4699f498"), "ZRX", 18)
	weth = token.New(common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"), "WETH", 18)
	mkr  = token.New(common.HexToAddress("0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2"), "MKR", 18)
)

func streamMessage(symbol, bid, ask string) []byte {
	data, _ := json.Marshal(BookTickerEvent{Symbol: symbol, BidPrice: bid, AskPrice: ask, BidQty: "1", AskQty: "1"})
	msg, _ := json.Marshal(StreamEvent{Stream: BookTickerStream(symbol), Data: data})
	return msg
}

func restServer(t *testing.T, hits *atomic.Int32, bid, ask string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != bookTickerEndpoint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(BookTickerResponse{
			Symbol:   r.URL.Query().Get("symbol"),
			BidPrice: bid,
			AskPrice: ask,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSource(t *testing.T, cfg Config) *Source {
	t.Helper()
	if cfg.Symbols == nil {
		cfg.Symbols = []string{"ZRXETH"}
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{"weth": "eth"}
	}
	s, err := NewSource(cfg, &mockLogger{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSource_StreamedQuote(t *testing.T) {
	var hits atomic.Int32
	rest := restServer(t, &hits, "1", "1")
	s := newSource(t, Config{RESTURL: rest.URL, StaleTimeout: time.Minute})
	ctx := context.Background()

	s.handleMessage(ctx, streamMessage("ZRXETH", "0.00049", "0.00051"))

	got, err := s.GetTicker(ctx, zrx, weth)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Price.String() != "0.0005" {
		t.Fatalf("GetTicker() = %+v, want 0.0005", got)
	}

	rev, err := s.GetTicker(ctx, weth, zrx)
	if err != nil {
		t.Fatal(err)
	}
	if rev == nil || rev.Price.String() != "2000" || rev.From != weth {
		t.Fatalf("reverse GetTicker() = %+v, want 2000", rev)
	}

	if hits.Load() != 0 {
		t.Errorf("REST hits = %d, want 0 while the stream is fresh", hits.Load())
	}
}

func TestSource_FallsBackToRESTWhenStale(t *testing.T) {
	var hits atomic.Int32
	rest := restServer(t, &hits, "0.0009", "0.0011")
	s := newSource(t, Config{RESTURL: rest.URL, StaleTimeout: time.Second})
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	s.handleMessage(ctx, streamMessage("ZRXETH", "0.00049", "0.00051"))

	now = now.Add(2 * time.Second)

	got, err := s.GetTicker(ctx, zrx, weth)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Price.String() != "0.001" {
		t.Fatalf("GetTicker() = %+v, want REST mid 0.001", got)
	}
	if hits.Load() != 1 {
		t.Errorf("REST hits = %d, want 1", hits.Load())
	}

	// the REST answer is now the fresh quote
	if _, err := s.GetTicker(ctx, zrx, weth); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("REST hits = %d, want the fallback result to be reused", hits.Load())
	}
}

func TestSource_UnknownPairAndNoData(t *testing.T) {
	s := newSource(t, Config{})
	ctx := context.Background()

	if got, err := s.GetTicker(ctx, zrx, mkr); got != nil || err != nil {
		t.Errorf("unconfigured pair = %v, %v", got, err)
	}
	// configured but never quoted and no REST fallback
	if got, err := s.GetTicker(ctx, zrx, weth); got != nil || err != nil {
		t.Errorf("no data = %v, %v", got, err)
	}
}

func TestSource_RESTFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	s := newSource(t, Config{RESTURL: srv.URL})
	_, err := s.GetTicker(context.Background(), zrx, weth)
	if !apperror.IsCode(err, apperror.CodeTickerUnavailable) {
		t.Errorf("err = %v, want ticker unavailable", err)
	}
}

func TestSource_IgnoresMalformedMessages(t *testing.T) {
	s := newSource(t, Config{})
	ctx := context.Background()

	s.handleMessage(ctx, []byte("not json"))
	s.handleMessage(ctx, []byte(`{"stream":"zrxeth@aggTrade","data":{}}`))
	s.handleMessage(ctx, streamMessage("ZRXETH", "0", "0.0005"))

	if got, _ := s.GetTicker(ctx, zrx, weth); got != nil {
		t.Errorf("GetTicker() = %+v, want absent", got)
	}
}

func TestSource_WebSocketStream(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.String())
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		if err := conn.Write(ctx, websocket.MessageText, streamMessage("ZRXETH", "0.0004", "0.0006")); err != nil {
			return
		}
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := newSource(t, Config{
		WebSocketURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		StaleTimeout: time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !s.Connected() {
		t.Error("expected stream to be connected")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := s.GetTicker(ctx, zrx, weth); got != nil {
			if got.Price.String() != "0.0005" {
				t.Errorf("price = %s, want 0.0005", got.Price)
			}
			if p, _ := path.Load().(string); p != "/stream?streams=zrxeth@bookTicker" {
				t.Errorf("stream path = %q", p)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no streamed quote received")
}

func TestNewSource_RequiresSymbols(t *testing.T) {
	if _, err := NewSource(Config{}, &mockLogger{}); err == nil {
		t.Error("expected error without symbols")
	}
}
