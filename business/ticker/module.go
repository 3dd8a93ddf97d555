// Package ticker implements the ticker bounded context: price sources, their
// weighted composition and the shared quote cache.
package ticker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/business/ticker/app"
	tickerDI "github.com/fd1az/reserve-relayer/business/ticker/di"
	"github.com/fd1az/reserve-relayer/business/ticker/infra/binance"
	"github.com/fd1az/reserve-relayer/business/ticker/infra/memory"
	tickerRedis "github.com/fd1az/reserve-relayer/business/ticker/infra/redis"
	"github.com/fd1az/reserve-relayer/business/ticker/infra/relayer"
	"github.com/fd1az/reserve-relayer/business/ticker/infra/uniswap"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
	"github.com/fd1az/reserve-relayer/internal/token"
)

const refreshJob = "ticker-refresh"

// Module implements the ticker bounded context.
type Module struct {
	binance *binance.Source
}

// RegisterServices registers all ticker services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, tickerDI.Cache, func(sr di.ServiceRegistry) app.Cache {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		if cfg.Ticker.Cache.Driver == "redis" {
			return tickerRedis.New(sr.Get(monolith.ServiceRedis).(*goredis.Client), cfg.Redis.KeyPrefix, log)
		}
		return memory.New(cfg.Ticker.Cache.CleanupInterval)
	})

	di.RegisterToken(c, tickerDI.Upstream, func(sr di.ServiceRegistry) app.Source {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		sources, err := m.sources(cfg, sr.Get(monolith.ServiceEthClient).(*ethclient.Client), log)
		if err != nil {
			panic("failed to create ticker sources: " + err.Error())
		}
		return app.NewManager(log, sources...)
	})

	di.RegisterToken(c, tickerDI.Ticker, func(sr di.ServiceRegistry) app.Source {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		return app.NewCachedSource(tickerDI.GetCache(sr), di.GetToken(sr, tickerDI.Upstream), cfg.Ticker.TTL, log)
	})

	di.RegisterToken(c, tickerDI.Refresher, func(sr di.ServiceRegistry) *app.Refresher {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		tokens := sr.Get(monolith.ServiceTokens).(*token.Registry)
		return app.NewRefresher(tokens, di.GetToken(sr, tickerDI.Upstream), tickerDI.GetCache(sr), cfg.Ticker.TTL, log)
	})

	return nil
}

// sources builds every enabled feed, each wrapped so that a failing feed
// contributes nothing instead of failing the lookup.
func (m *Module) sources(cfg *config.Config, eth *ethclient.Client, log logger.LoggerInterface) ([]app.WeightedSource, error) {
	var sources []app.WeightedSource
	tc := cfg.Ticker

	if tc.Fixed.Enabled {
		prices := make(map[string]decimal.Decimal, len(tc.Fixed.Prices))
		for _, p := range tc.Fixed.Prices {
			price, err := decimal.NewFromString(p.Price)
			if err != nil {
				return nil, fmt.Errorf("fixed price %s/%s: %w", p.From, p.To, err)
			}
			prices[strings.ToUpper(p.From)+"/"+strings.ToUpper(p.To)] = price
		}
		sources = append(sources, app.WeightedSource{
			Name:   "fixed",
			Source: app.NewFixedSource(prices),
			Weight: decimal.RequireFromString(tc.Fixed.Weight),
		})
	}

	if tc.Relayer.Enabled {
		src, err := relayer.NewSource(relayer.Config{
			BaseURL:   tc.Relayer.BaseURL,
			Timeout:   tc.Relayer.Timeout,
			RateLimit: tc.Relayer.RateLimit,
			Burst:     tc.Relayer.Burst,
		}, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, app.WeightedSource{
			Name:   "relayer",
			Source: app.Swallow(src, "relayer", log),
			Weight: decimal.RequireFromString(tc.Relayer.Weight),
		})
	}

	if tc.Binance.Enabled {
		src, err := binance.NewSource(binance.Config{
			WebSocketURL: tc.Binance.WebSocketURL,
			RESTURL:      tc.Binance.RESTURL,
			Symbols:      tc.Binance.Symbols,
			Aliases:      tc.Binance.Aliases,
			StaleTimeout: tc.Binance.StaleTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		m.binance = src
		sources = append(sources, app.WeightedSource{
			Name:   "binance",
			Source: app.Swallow(src, "binance", log),
			Weight: decimal.RequireFromString(tc.Binance.Weight),
		})
	}

	if tc.Uniswap.Enabled {
		src, err := uniswap.NewSource(eth, uniswap.Config{
			Quoter:   tc.Uniswap.QuoterAddressHex(),
			FeeTiers: tc.Uniswap.FeeTiers,
		}, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, app.WeightedSource{
			Name:   "uniswap",
			Source: app.Swallow(src, "uniswap", log),
			Weight: decimal.RequireFromString(tc.Uniswap.Weight),
		})
	}

	return sources, nil
}

// Startup schedules the cache refresh and opens the Binance stream.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	// resolving the upstream builds the feeds, m.binance included
	_ = di.GetToken(mono.Services(), tickerDI.Upstream)
	cache := tickerDI.GetCache(mono.Services())
	refresher := tickerDI.GetRefresher(mono.Services())

	if m.binance != nil {
		go func() {
			if err := m.binance.Connect(ctx); err != nil {
				log.Error(ctx, "binance stream unavailable, using REST fallback", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = m.binance.Close()
		}()
		mono.Health().RegisterCheck("binance_stream", func(context.Context) (bool, string) {
			if m.binance.Connected() {
				return true, "connected"
			}
			return false, "disconnected"
		})
	}

	mono.Health().RegisterCheck("ticker_cache", cacheCheck(cache, mono.Tokens()))

	if cfg.Ticker.RefreshInterval > 0 {
		if err := mono.Scheduler().Start(ctx, refreshJob, cfg.Ticker.RefreshInterval, true, refresher.RefreshAll); err != nil {
			return err
		}
	}

	log.Info(ctx, "ticker module started",
		"cache", cfg.Ticker.Cache.Driver,
		"ttl", cfg.Ticker.TTL.String(),
		"refresh_interval", cfg.Ticker.RefreshInterval.String(),
	)
	return nil
}

// cacheCheck reports healthy once any pair has a cached entry, absence included.
func cacheCheck(cache app.Cache, tokens *token.Registry) func(context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		if p, ok := cache.(interface{ Ping(context.Context) error }); ok {
			if err := p.Ping(ctx); err != nil {
				return false, err.Error()
			}
		}
		all := tokens.All()
		for _, from := range all {
			for _, to := range all {
				if from.Equals(to) {
					continue
				}
				if _, ok := cache.Get(ctx, from, to); ok {
					return true, "warm"
				}
			}
		}
		return false, "cold"
	}
}
