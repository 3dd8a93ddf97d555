package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/business/ticker/domain"
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
	zrx  = token.New(common.HexToAddress("0x01"), "ZRX", 18)
	weth = token.New(common.HexToAddress("0x02"), "WETH", 18)
)

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, "relayer:", &mockLogger{}), mr
}

func TestCache_SetGetExpire(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	c.Set(ctx, zrx, weth, &domain.Ticker{From: zrx, To: weth, Price: decimal.RequireFromString("0.0005")}, 500*time.Millisecond)

	got, ok := c.Get(ctx, zrx, weth)
	if !ok || got.Price.String() != "0.0005" || got.From != zrx {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}
	if !mr.Exists("relayer:ticker:ZRX/WETH") {
		t.Error("expected namespaced key")
	}

	mr.FastForward(501 * time.Millisecond)

	if _, ok := c.Get(ctx, zrx, weth); ok {
		t.Error("expected entry to expire")
	}
}

func TestCache_Absent(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx, weth, zrx); ok {
		t.Fatal("never-set key must miss")
	}

	c.Set(ctx, weth, zrx, nil, time.Minute)
	got, ok := c.Get(ctx, weth, zrx)
	if !ok || got != nil {
		t.Errorf("Get() = %v, %v; want cached absence", got, ok)
	}
}

func TestCache_CorruptValueIsMiss(t *testing.T) {
	c, mr := newCache(t)
	if err := mr.Set("relayer:ticker:ZRX/WETH", "not json"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(context.Background(), zrx, weth); ok {
		t.Error("corrupt value must read as a miss")
	}
}

func TestCache_ClearKeepsOtherKeys(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	c.Set(ctx, zrx, weth, nil, time.Minute)
	c.Set(ctx, weth, zrx, nil, time.Minute)
	if err := mr.Set("relayer:limit:1.2.3.4", "{}"); err != nil {
		t.Fatal(err)
	}

	c.Clear(ctx)

	if mr.Exists("relayer:ticker:ZRX/WETH") || mr.Exists("relayer:ticker:WETH/ZRX") {
		t.Error("ticker keys must be removed")
	}
	if !mr.Exists("relayer:limit:1.2.3.4") {
		t.Error("other namespaces must survive Clear")
	}
}

func TestCache_RedisDownIsMiss(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	c.Set(context.Background(), zrx, weth, nil, time.Minute)
	if _, ok := c.Get(context.Background(), zrx, weth); ok {
		t.Error("unreachable redis must read as a miss")
	}
}
