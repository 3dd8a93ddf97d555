// Package quoting implements the quoting bounded context: liquidity
// envelopes, fees, prices and tradable token pairs.
package quoting

import (
	"context"

	exchangeDI "github.com/fd1az/reserve-relayer/business/exchange/di"
	"github.com/fd1az/reserve-relayer/business/quoting/app"
	quotingDI "github.com/fd1az/reserve-relayer/business/quoting/di"
	tickerDI "github.com/fd1az/reserve-relayer/business/ticker/di"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Module implements the quoting bounded context.
type Module struct{}

// RegisterServices registers all quoting services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, quotingDI.Liquidity, func(sr di.ServiceRegistry) *app.LiquidityService {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		return app.NewLiquidityService(
			exchangeDI.GetGateway(sr),
			exchangeDI.GetSigner(sr).Address(),
			app.LiquidityConfig{
				Percentage:    cfg.Liquidity.PercentageDecimal(),
				MinimumAmount: cfg.Liquidity.MinimumAmountDecimal(),
				Precision:     cfg.Liquidity.Precision,
			},
		)
	})

	di.RegisterToken(c, quotingDI.Fees, func(sr di.ServiceRegistry) app.Fees {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		tokens := sr.Get(monolith.ServiceTokens).(*token.Registry)
		return app.NewFeeService(tokens, tickerDI.GetTicker(sr), app.FeeConfig{
			Payer:       app.FeePayer(cfg.Fee.Payer),
			Rate:        cfg.Fee.RateDecimal(),
			TokenSymbol: cfg.Fee.TokenSymbol,
			Recipient:   cfg.Fee.RecipientHex(),
		}, log)
	})

	di.RegisterToken(c, quotingDI.Price, func(sr di.ServiceRegistry) *app.PriceService {
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		tokens := sr.Get(monolith.ServiceTokens).(*token.Registry)
		return app.NewPriceService(tokens, tickerDI.GetTicker(sr), quotingDI.GetLiquidity(sr), log)
	})

	di.RegisterToken(c, quotingDI.Pairs, func(sr di.ServiceRegistry) app.Pairs {
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		tokens := sr.Get(monolith.ServiceTokens).(*token.Registry)
		return app.NewTokenPairService(tokens, tickerDI.GetTicker(sr), quotingDI.GetLiquidity(sr), log)
	})

	return nil
}

// Startup checks that the fee token is known when fees are charged.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	if cfg.Fee.RateDecimal().IsPositive() {
		if _, err := mono.Tokens().GetBySymbol(cfg.Fee.TokenSymbol); err != nil {
			return err
		}
	}

	mono.Logger().Info(ctx, "quoting module started",
		"liquidity_percentage", cfg.Liquidity.Percentage,
		"fee_payer", cfg.Fee.Payer,
		"fee_rate", cfg.Fee.Rate,
	)
	return nil
}
