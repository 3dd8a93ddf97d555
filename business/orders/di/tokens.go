// Package di contains dependency injection tokens for the orders context.
package di

import (
	"github.com/fd1az/reserve-relayer/business/orders/app"
	"github.com/fd1az/reserve-relayer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orders = di.NewToken[*app.Service]("orders.Service")
)

func GetOrders(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Orders)
}
