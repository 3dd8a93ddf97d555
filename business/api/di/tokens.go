// Package di contains dependency injection tokens for the api context.
package di

import (
	"github.com/gin-gonic/gin"

	"github.com/fd1az/reserve-relayer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Router = di.NewToken[*gin.Engine]("api.Router")
)

func GetRouter(c di.ServiceRegistry) *gin.Engine {
	return di.GetToken(c, Router)
}
