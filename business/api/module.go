// Package api implements the REST surface of the relayer.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	apiDI "github.com/fd1az/reserve-relayer/business/api/di"
	"github.com/fd1az/reserve-relayer/business/api/rest"
	ordersDI "github.com/fd1az/reserve-relayer/business/orders/di"
	quotingDI "github.com/fd1az/reserve-relayer/business/quoting/di"
	limitDI "github.com/fd1az/reserve-relayer/business/requestlimit/di"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/health"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Module implements the api bounded context.
type Module struct{}

// RegisterServices registers the router with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, apiDI.Router, func(sr di.ServiceRegistry) *gin.Engine {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		if cfg.App.Environment != "development" {
			gin.SetMode(gin.ReleaseMode)
		}

		deps := rest.Deps{
			Pairs:  quotingDI.GetPairs(sr),
			Orders: ordersDI.GetOrders(sr),
			Prices: quotingDI.GetPrice(sr),
			Fees:   quotingDI.GetFees(sr),
			Tokens: sr.Get(monolith.ServiceTokens).(*token.Registry),
			Health: sr.Get(monolith.ServiceHealth).(*health.Registry),
			Logger: log,
		}
		if cfg.RequestLimit.Enabled {
			deps.Limiter = limitDI.GetLimiter(sr)
		}

		return rest.NewRouter(rest.NewHandler(deps), rest.RouterConfig{
			Gzip:    cfg.HTTP.Gzip,
			Metrics: true,
		})
	})
	return nil
}

// Startup builds the router so wiring errors surface before the server starts.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	router := apiDI.GetRouter(mono.Services())
	mono.Logger().Info(ctx, "api module started", "routes", len(router.Routes()))
	return nil
}
