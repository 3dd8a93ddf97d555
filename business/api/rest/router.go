package rest

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig toggles optional router features.
type RouterConfig struct {
	Gzip    bool
	Metrics bool
}

// NewRouter builds the gin engine serving the v0 API, the health endpoints
// and /metrics.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), h.Recovery(), h.AccessLog())
	if cfg.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	if h.health != nil {
		h.health.Mount(r)
	}
	if cfg.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v0 := r.Group("/v0", h.RequestLimit(), h.ValidateQuery())
	v0.GET("/token_pairs", h.TokenPairs)
	v0.GET("/orders", h.Orders)
	v0.GET("/price", h.Price)
	v0.POST("/fees", h.Fees)

	return r
}
