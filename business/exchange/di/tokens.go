// Package di contains dependency injection tokens for the exchange context.
package di

import (
	"github.com/fd1az/reserve-relayer/business/exchange/app"
	"github.com/fd1az/reserve-relayer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Gateway    = di.NewToken[app.Gateway]("exchange.Gateway")
	Signer     = di.NewToken[app.Signer]("exchange.Signer")
	Salt       = di.NewToken[app.SaltSource]("exchange.Salt")
	Expiration = di.NewToken[app.ExpirationSource]("exchange.Expiration")
)

func GetGateway(c di.ServiceRegistry) app.Gateway {
	return di.GetToken(c, Gateway)
}

func GetSigner(c di.ServiceRegistry) app.Signer {
	return di.GetToken(c, Signer)
}

func GetSalt(c di.ServiceRegistry) app.SaltSource {
	return di.GetToken(c, Salt)
}

func GetExpiration(c di.ServiceRegistry) app.ExpirationSource {
	return di.GetToken(c, Expiration)
}
