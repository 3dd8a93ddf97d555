// Package di contains dependency injection tokens for the request limit context.
package di

import (
	"github.com/fd1az/reserve-relayer/business/requestlimit/app"
	"github.com/fd1az/reserve-relayer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Limiter = di.NewToken[*app.Service]("requestlimit.Service")
)

func GetLimiter(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Limiter)
}
