// Package di contains dependency injection tokens for the ticker context.
package di

import (
	"github.com/fd1az/reserve-relayer/business/ticker/app"
	"github.com/fd1az/reserve-relayer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	// Ticker is the cached, weighted price source used by quoting.
	Ticker = di.NewToken[app.Source]("ticker.Ticker")
	Cache  = di.NewToken[app.Cache]("ticker.Cache")
)

// Internal service tokens
var (
	Refresher = di.NewToken[*app.Refresher]("ticker.Refresher")
	Upstream  = di.NewToken[app.Source]("ticker.Upstream")
)

func GetTicker(c di.ServiceRegistry) app.Source {
	return di.GetToken(c, Ticker)
}

func GetCache(c di.ServiceRegistry) app.Cache {
	return di.GetToken(c, Cache)
}

func GetRefresher(c di.ServiceRegistry) *app.Refresher {
	return di.GetToken(c, Refresher)
}
