// Package requestlimit implements the request limit bounded context.
package requestlimit

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fd1az/reserve-relayer/business/requestlimit/app"
	limitDI "github.com/fd1az/reserve-relayer/business/requestlimit/di"
	"github.com/fd1az/reserve-relayer/business/requestlimit/infra/memory"
	limitRedis "github.com/fd1az/reserve-relayer/business/requestlimit/infra/redis"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
)

// Module implements the request limit bounded context.
type Module struct{}

// RegisterServices registers the limiter with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, limitDI.Limiter, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		var store app.Store
		if cfg.RequestLimit.Driver == "redis" {
			store = limitRedis.New(sr.Get(monolith.ServiceRedis).(*goredis.Client), cfg.Redis.KeyPrefix)
		} else {
			store = memory.New(cfg.RequestLimit.Window)
		}

		svc, err := app.NewService(store, app.Config{
			Window:   cfg.RequestLimit.Window,
			MaxCalls: cfg.RequestLimit.MaxCalls,
		}, nil, log)
		if err != nil {
			panic("failed to create request limiter: " + err.Error())
		}
		return svc
	})
	return nil
}

// Startup builds the limiter when it is enabled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config().RequestLimit
	if !cfg.Enabled {
		mono.Logger().Info(ctx, "request limit disabled")
		return nil
	}
	_ = limitDI.GetLimiter(mono.Services())

	mono.Logger().Info(ctx, "request limit module started",
		"driver", cfg.Driver,
		"window", cfg.Window.String(),
		"max_calls", cfg.MaxCalls,
	)
	return nil
}
