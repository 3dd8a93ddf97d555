package rest

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	exchangeDomain "github.com/fd1az/reserve-relayer/business/exchange/domain"
	ordersApp "github.com/fd1az/reserve-relayer/business/orders/app"
	quotingDomain "github.com/fd1az/reserve-relayer/business/quoting/domain"
	limitDomain "github.com/fd1az/reserve-relayer/business/requestlimit/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/health"
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
	zrx  = token.New(common.HexToAddress("0xE41d2489571d322189246DaFA5ebDe1F4699F498"), "ZRX", 18)
	weth = token.New(common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", 18)
	feeR = common.HexToAddress("0x00000000000000000000000000000000000000Fe")
)

type fakePairs struct {
	pairs   []quotingDomain.TokenPairTradeInfo
	err     error
	calls   int
	tokenA  *common.Address
	tokenB  *common.Address
	page    *int
	perPage *int
}

func (f *fakePairs) ListPairs(_ context.Context, tokenA, tokenB *common.Address, page, perPage *int) ([]quotingDomain.TokenPairTradeInfo, error) {
	f.calls++
	f.tokenA, f.tokenB, f.page, f.perPage = tokenA, tokenB, page, perPage
	return f.pairs, f.err
}

func (f *fakePairs) GetPair(context.Context, common.Address, common.Address) (*quotingDomain.TokenPairTradeInfo, error) {
	return nil, nil
}

type fakeOrders struct {
	orders []exchangeDomain.SignedOrder
	filter ordersApp.OrderFilter
	panics bool
}

func (f *fakeOrders) ListOrders(_ context.Context, filter ordersApp.OrderFilter) ([]exchangeDomain.SignedOrder, error) {
	if f.panics {
		panic("boom")
	}
	f.filter = filter
	return f.orders, nil
}

type fakePrices struct {
	tokens *token.Registry
	trader common.Address
}

func (f *fakePrices) CalculatePrice(_ context.Context, from, to, trader common.Address) (quotingDomain.PriceQuote, error) {
	if _, err := f.tokens.GetByAddress(from); err != nil {
		return quotingDomain.PriceQuote{}, err
	}
	f.trader = trader
	return quotingDomain.PriceQuote{
		TokenFrom:     from,
		TokenTo:       to,
		Price:         decimal.RequireFromString("0.0005"),
		MaxAmountFrom: decimal.NewFromInt(200),
		MaxAmountTo:   decimal.RequireFromString("0.1"),
		MinAmountFrom: decimal.Zero,
		MinAmountTo:   decimal.Zero,
	}, nil
}

type fakeFees struct{}

func (fakeFees) MakerFee(_ context.Context, _ *token.Token, amount *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (fakeFees) TakerFee(_ context.Context, _ *token.Token, amount *big.Int) (*big.Int, error) {
	return new(big.Int).Div(amount, big.NewInt(10)), nil
}

func (fakeFees) FeeRecipient(context.Context, *token.Token) common.Address { return feeR }

type fakeLimiter struct {
	limit limitDomain.Limit
	err   error
	keys  []string
}

func (f *fakeLimiter) GetLimit(_ context.Context, key string) (limitDomain.Limit, error) {
	f.keys = append(f.keys, key)
	return f.limit, f.err
}

func (f *fakeLimiter) MaxCalls() int { return 3 }

type fixture struct {
	pairs   *fakePairs
	orders  *fakeOrders
	prices  *fakePrices
	limiter *fakeLimiter
	router  *gin.Engine
}

func newFixture(t *testing.T, withLimiter bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := token.NewRegistry(zrx, weth)
	f := &fixture{
		pairs:   &fakePairs{pairs: []quotingDomain.TokenPairTradeInfo{}},
		orders:  &fakeOrders{},
		prices:  &fakePrices{tokens: reg},
		limiter: &fakeLimiter{},
	}
	deps := Deps{
		Pairs:  f.pairs,
		Orders: f.orders,
		Prices: f.prices,
		Fees:   fakeFees{},
		Tokens: reg,
		Health: health.NewRegistry("test", time.Second),
		Logger: &mockLogger{},
	}
	if withLimiter {
		deps.Limiter = f.limiter
	}
	f.router = NewRouter(NewHandler(deps), RouterConfig{})
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperror.ErrorBody {
	t.Helper()
	var body apperror.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestTokenPairs(t *testing.T) {
	f := newFixture(t, false)
	f.pairs.pairs = []quotingDomain.TokenPairTradeInfo{{
		TokenA: quotingDomain.PairSide{Address: zrx.Address(), MinAmount: big.NewInt(0), MaxAmount: big.NewInt(200), Precision: 6},
		TokenB: quotingDomain.PairSide{Address: weth.Address(), MinAmount: big.NewInt(0), MaxAmount: big.NewInt(1), Precision: 6},
	}}

	w := f.do(t, http.MethodGet, "/v0/token_pairs?tokenA="+zrx.Address().Hex()+"&page=1&per_page=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got []TokenPairResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].TokenA.Address != "0xe41d2489571d322189246dafa5ebde1f4699f498" {
		t.Errorf("tokenA.address = %s, want lowercase hex", got[0].TokenA.Address)
	}
	if got[0].TokenA.MaxAmount != "200" || got[0].TokenB.MaxAmount != "1" || got[0].TokenA.Precision != 6 {
		t.Errorf("pair = %+v", got[0])
	}

	if f.pairs.tokenA == nil || *f.pairs.tokenA != zrx.Address() {
		t.Errorf("tokenA filter = %v", f.pairs.tokenA)
	}
	if f.pairs.tokenB != nil {
		t.Errorf("tokenB filter = %v, want nil", f.pairs.tokenB)
	}
	if f.pairs.page == nil || *f.pairs.page != 1 || f.pairs.perPage == nil || *f.pairs.perPage != 2 {
		t.Errorf("page = %v per_page = %v", f.pairs.page, f.pairs.perPage)
	}
}

func TestTokenPairs_EmptyListIsArray(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/v0/token_pairs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", w.Body.String())
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   apperror.Code
	}{
		{"bad token address", "/v0/token_pairs?tokenA=0x123", apperror.CodeInvalidAddress},
		{"bad maker", "/v0/orders?maker=not-an-address", apperror.CodeInvalidAddress},
		{"bad trader", "/v0/price?tokenFrom=" + zrx.Address().Hex() + "&tokenTo=" + weth.Address().Hex() + "&trader=0xzz", apperror.CodeInvalidAddress},
		{"non integer page", "/v0/token_pairs?page=one", apperror.CodeInvalidInput},
		{"non integer per_page", "/v0/orders?per_page=1.5", apperror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			w := f.do(t, http.MethodGet, tt.target, "")

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if body := decodeError(t, w); body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
			if f.pairs.calls != 0 {
				t.Error("handler ran for an invalid request")
			}
		})
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"out of range page", apperror.OutOfRange("Page should start at 1"), http.StatusBadRequest},
		{"unknown token", apperror.NotFound(apperror.CodeTokenNotFound, "0x01"), http.StatusNotFound},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.pairs.err = tt.err

			w := f.do(t, http.MethodGet, "/v0/token_pairs?page=0", "")
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			decodeError(t, w)
		})
	}
}

func TestOrders(t *testing.T) {
	f := newFixture(t, false)
	f.orders.orders = []exchangeDomain.SignedOrder{{
		Order: exchangeDomain.Order{
			ExchangeContract: common.HexToAddress("0x12459c951127e0c374ff9105dda097662a027093"),
			Maker:            common.HexToAddress("0x00000000000000000000000000000000000000aa"),
			MakerToken:       zrx.Address(),
			TakerToken:       weth.Address(),
			FeeRecipient:     feeR,
			MakerTokenAmount: big.NewInt(200),
			TakerTokenAmount: big.NewInt(1),
			MakerFee:         big.NewInt(0),
			TakerFee:         big.NewInt(2),
			Expiration:       big.NewInt(1700000300),
			Salt:             big.NewInt(42),
		},
		Signature: exchangeDomain.ECSignature{
			V: 28,
			R: common.HexToHash("0x01"),
			S: common.HexToHash("0x02"),
		},
	}}

	w := f.do(t, http.MethodGet, "/v0/orders?makerTokenAddress="+zrx.Address().Hex()+"&trader="+feeR.Hex()+"&per_page=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got []OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	o := got[0]
	if o.Taker != "0x0000000000000000000000000000000000000000" {
		t.Errorf("taker = %s", o.Taker)
	}
	if o.MakerTokenAmount != "200" || o.TakerFee != "2" || o.ExpirationUnixTimestampSec != "1700000300" || o.Salt != "42" {
		t.Errorf("order = %+v", o)
	}
	if o.ECSignature.V != 28 || o.ECSignature.R != common.HexToHash("0x01").Hex() {
		t.Errorf("signature = %+v", o.ECSignature)
	}

	filter := f.orders.filter
	if filter.MakerTokenAddress == nil || *filter.MakerTokenAddress != zrx.Address() {
		t.Errorf("makerTokenAddress filter = %v", filter.MakerTokenAddress)
	}
	if filter.Trader == nil || *filter.Trader != feeR {
		t.Errorf("trader filter = %v", filter.Trader)
	}
	if filter.Maker != nil || filter.Page != nil {
		t.Errorf("unexpected filters maker=%v page=%v", filter.Maker, filter.Page)
	}
	if filter.PerPage == nil || *filter.PerPage != 5 {
		t.Errorf("per_page = %v", filter.PerPage)
	}
}

func TestPrice(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/v0/price?tokenFrom="+zrx.Address().Hex()+"&tokenTo="+weth.Address().Hex()+"&trader="+feeR.Hex(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got PriceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Price != "0.0005" || got.MaxAmountFrom != "200" || got.MaxAmountTo != "0.1" {
		t.Errorf("price = %+v", got)
	}
	if f.prices.trader != feeR {
		t.Errorf("trader = %s", f.prices.trader.Hex())
	}
}

func TestPrice_Errors(t *testing.T) {
	unknown := common.HexToAddress("0x0000000000000000000000000000000000000009")
	tests := []struct {
		name   string
		target string
		status int
		code   apperror.Code
	}{
		{"missing tokenTo", "/v0/price?tokenFrom=" + zrx.Address().Hex(), http.StatusBadRequest, apperror.CodeInvalidArgument},
		{"unknown token", "/v0/price?tokenFrom=" + unknown.Hex() + "&tokenTo=" + weth.Address().Hex(), http.StatusNotFound, apperror.CodeTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			w := f.do(t, http.MethodGet, tt.target, "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if body := decodeError(t, w); body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}
}

func TestFees(t *testing.T) {
	f := newFixture(t, false)
	body := `{"makerTokenAddress":"` + zrx.Address().Hex() + `","takerTokenAddress":"` + weth.Address().Hex() + `","makerTokenAmount":"200","takerTokenAmount":"1000"}`

	w := f.do(t, http.MethodPost, "/v0/fees", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got FeesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.MakerFee != "0" || got.TakerFee != "100" {
		t.Errorf("fees = %+v", got)
	}
	if got.FeeRecipient != "0x00000000000000000000000000000000000000fe" {
		t.Errorf("feeRecipient = %s", got.FeeRecipient)
	}
}

func TestFees_Errors(t *testing.T) {
	unknown := common.HexToAddress("0x0000000000000000000000000000000000000009")
	tests := []struct {
		name   string
		body   string
		status int
		code   apperror.Code
	}{
		{"malformed json", `{"makerTokenAddress":`, http.StatusBadRequest, apperror.CodeInvalidInput},
		{"missing field", `{"makerTokenAddress":"` + zrx.Address().Hex() + `"}`, http.StatusBadRequest, apperror.CodeInvalidInput},
		{"bad address", `{"makerTokenAddress":"0x1","takerTokenAddress":"` + weth.Address().Hex() + `","makerTokenAmount":"1","takerTokenAmount":"1"}`, http.StatusBadRequest, apperror.CodeInvalidAddress},
		{"unknown token", `{"makerTokenAddress":"` + unknown.Hex() + `","takerTokenAddress":"` + weth.Address().Hex() + `","makerTokenAmount":"1","takerTokenAmount":"1"}`, http.StatusNotFound, apperror.CodeTokenNotFound},
		{"negative amount", `{"makerTokenAddress":"` + zrx.Address().Hex() + `","takerTokenAddress":"` + weth.Address().Hex() + `","makerTokenAmount":"-1","takerTokenAmount":"1"}`, http.StatusBadRequest, apperror.CodeInvalidInput},
		{"decimal amount", `{"makerTokenAddress":"` + zrx.Address().Hex() + `","takerTokenAddress":"` + weth.Address().Hex() + `","makerTokenAmount":"1","takerTokenAmount":"1.5"}`, http.StatusBadRequest, apperror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			w := f.do(t, http.MethodPost, "/v0/fees", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.status, w.Body.String())
			}
			if body := decodeError(t, w); body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}
}

func TestRequestLimit_Headers(t *testing.T) {
	f := newFixture(t, true)
	reset := time.Unix(1700003600, 0)
	f.limiter.limit = limitDomain.Limit{RemainingLimit: 2, LimitPerHour: 3, CurrentLimitExpiration: reset}

	w := f.do(t, http.MethodGet, "/v0/token_pairs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get(headerLimit); got != "3" {
		t.Errorf("%s = %q", headerLimit, got)
	}
	if got := w.Header().Get(headerRemaining); got != "2" {
		t.Errorf("%s = %q", headerRemaining, got)
	}
	if got := w.Header().Get(headerReset); got != "1700003600" {
		t.Errorf("%s = %q", headerReset, got)
	}
	if len(f.limiter.keys) != 1 || f.limiter.keys[0] != "192.0.2.1" {
		t.Errorf("limiter keys = %v, want client ip", f.limiter.keys)
	}
}

func TestRequestLimit_Reached(t *testing.T) {
	f := newFixture(t, true)
	f.limiter.limit = limitDomain.Limit{IsLimitReached: true}

	w := f.do(t, http.MethodGet, "/v0/token_pairs", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if body := decodeError(t, w); body.Code != apperror.CodeRateLimitExceeded {
		t.Errorf("code = %s", body.Code)
	}
	if w.Header().Get(headerRemaining) != "0" {
		t.Errorf("remaining = %q", w.Header().Get(headerRemaining))
	}
	if f.pairs.calls != 0 {
		t.Error("handler ran after the limit was reached")
	}
}

func TestRequestLimit_StoreFailureLetsRequestThrough(t *testing.T) {
	f := newFixture(t, true)
	f.limiter.err = apperror.New(apperror.CodeCacheError)

	w := f.do(t, http.MethodGet, "/v0/token_pairs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get(headerLimit) != "" {
		t.Error("limit headers set without a limit")
	}
}

func TestRequestLimit_NotAppliedToHealth(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodGet, "/live", "")
	if w.Code != http.StatusOK || w.Body.String() != "alive" {
		t.Errorf("live = %d %q", w.Code, w.Body.String())
	}
	if len(f.limiter.keys) != 0 {
		t.Error("health endpoint was counted")
	}
}

func TestRecovery(t *testing.T) {
	f := newFixture(t, false)
	f.orders.panics = true

	w := f.do(t, http.MethodGet, "/v0/orders", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeError(t, w); body.Code != apperror.CodeInternalError {
		t.Errorf("code = %s", body.Code)
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/live", "")
	if w.Header().Get(headerRequestID) == "" {
		t.Error("request id not assigned")
	}

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if got := w.Header().Get(headerRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want propagated", got)
	}
}

func TestGzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Deps{
		Pairs:  &fakePairs{pairs: []quotingDomain.TokenPairTradeInfo{}},
		Logger: &mockLogger{},
	})
	router := NewRouter(h, RouterConfig{Gzip: true})

	req := httptest.NewRequest(http.MethodGet, "/v0/token_pairs", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", w.Header().Get("Content-Encoding"))
	}
}
