// Package di contains dependency injection tokens for the quoting context.
package di

import (
	"github.com/fd1az/reserve-relayer/business/quoting/app"
	"github.com/fd1az/reserve-relayer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Liquidity = di.NewToken[*app.LiquidityService]("quoting.Liquidity")
	Fees      = di.NewToken[app.Fees]("quoting.Fees")
	Price     = di.NewToken[*app.PriceService]("quoting.Price")
	Pairs     = di.NewToken[app.Pairs]("quoting.Pairs")
)

func GetLiquidity(c di.ServiceRegistry) *app.LiquidityService {
	return di.GetToken(c, Liquidity)
}

func GetFees(c di.ServiceRegistry) app.Fees {
	return di.GetToken(c, Fees)
}

func GetPrice(c di.ServiceRegistry) *app.PriceService {
	return di.GetToken(c, Price)
}

func GetPairs(c di.ServiceRegistry) app.Pairs {
	return di.GetToken(c, Pairs)
}
