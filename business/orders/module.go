// Package orders implements the orders bounded context: signed orders
// synthesised on demand from the relayer's tradable pairs.
package orders

import (
	"context"

	exchangeDI "github.com/fd1az/reserve-relayer/business/exchange/di"
	"github.com/fd1az/reserve-relayer/business/orders/app"
	ordersDI "github.com/fd1az/reserve-relayer/business/orders/di"
	quotingDI "github.com/fd1az/reserve-relayer/business/quoting/di"
	tickerDI "github.com/fd1az/reserve-relayer/business/ticker/di"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Module implements the orders bounded context.
type Module struct{}

// RegisterServices registers all order services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, ordersDI.Orders, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		svc, err := app.NewService(app.Deps{
			Gateway:     exchangeDI.GetGateway(sr),
			Signer:      exchangeDI.GetSigner(sr),
			Salts:       exchangeDI.GetSalt(sr),
			Expirations: exchangeDI.GetExpiration(sr),
			Pairs:       quotingDI.GetPairs(sr),
			Fees:        quotingDI.GetFees(sr),
			Tickers:     tickerDI.GetTicker(sr),
			Tokens:      sr.Get(monolith.ServiceTokens).(*token.Registry),
		}, cfg.Orders.Concurrency, log)
		if err != nil {
			panic("failed to create order service: " + err.Error())
		}
		return svc
	})
	return nil
}

// Startup resolves the service so wiring errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = ordersDI.GetOrders(mono.Services())

	mono.Logger().Info(ctx, "orders module started",
		"expiration", mono.Config().Orders.Expiration.String(),
		"concurrency", mono.Config().Orders.Concurrency,
	)
	return nil
}
