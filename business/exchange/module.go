// Package exchange implements the exchange bounded context: chain reads,
// order signing, salts and expirations.
package exchange

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/reserve-relayer/business/exchange/app"
	exchangeDI "github.com/fd1az/reserve-relayer/business/exchange/di"
	"github.com/fd1az/reserve-relayer/business/exchange/infra/ethereum"
	"github.com/fd1az/reserve-relayer/business/exchange/infra/signer"
	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/monolith"
)

// Module implements the exchange bounded context.
type Module struct{}

// RegisterServices registers all exchange services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, exchangeDI.Gateway, func(sr di.ServiceRegistry) app.Gateway {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		gw, err := ethereum.NewGateway(client, ethereum.Config{
			ExchangeAddress:   cfg.Exchange.ContractAddressHex(),
			ProxyAddress:      cfg.Exchange.ProxyAddressHex(),
			BalanceCacheTTL:   cfg.Exchange.BalanceCacheTTL,
			AllowanceCacheTTL: cfg.Exchange.AllowanceCheckTTL,
			CallTimeout:       cfg.Ethereum.CallTimeout,
		}, log)
		if err != nil {
			panic("failed to create exchange gateway: " + err.Error())
		}
		return gw
	})

	di.RegisterToken(c, exchangeDI.Signer, func(sr di.ServiceRegistry) app.Signer {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		s, err := signer.New(cfg.Exchange.PrivateKey)
		if err != nil {
			panic("failed to create order signer: " + err.Error())
		}
		return s
	})

	di.RegisterToken(c, exchangeDI.Salt, func(di.ServiceRegistry) app.SaltSource {
		return app.NewSaltService()
	})

	di.RegisterToken(c, exchangeDI.Expiration, func(sr di.ServiceRegistry) app.ExpirationSource {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		return app.NewExpirationService(cfg.Orders.Expiration, nil)
	})

	return nil
}

// Startup resolves the signer early so a bad key fails the boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	s := exchangeDI.GetSigner(mono.Services())
	gw := exchangeDI.GetGateway(mono.Services())

	mono.Logger().Info(ctx, "exchange module started",
		"relayer", s.Address().Hex(),
		"exchange_contract", gw.CurrentContractAddress().Hex(),
	)
	return nil
}
