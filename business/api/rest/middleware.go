package rest

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

const (
	requestIDKey    = "request_id"
	headerRequestID = "X-Request-ID"

	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// addressParams are the query parameters holding token or account addresses.
var addressParams = []string{
	"tokenA", "tokenB",
	"tokenFrom", "tokenTo",
	"exchangeContractAddress", "tokenAddress",
	"makerTokenAddress", "takerTokenAddress",
	"maker", "taker", "trader", "feeRecipient",
}

// Recovery turns a panic into a 500 response.
func (h *Handler) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error(c.Request.Context(), "panic recovered",
					"request_id", c.GetString(requestIDKey),
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperror.New(apperror.CodeInternalError).ToResponse())
			}
		}()
		c.Next()
	}
}

// RequestID propagates or assigns X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// AccessLog logs every request once it has been served.
func (h *Handler) AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			h.logger.Error(ctx, "server error", args...)
		case status >= http.StatusBadRequest:
			h.logger.Warn(ctx, "client error", args...)
		default:
			h.logger.Info(ctx, "request completed", args...)
		}
	}
}

// RequestLimit counts the call against the client IP. The limiter failing
// lets the request through.
func (h *Handler) RequestLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}

		limit, err := h.limiter.GetLimit(c.Request.Context(), c.ClientIP())
		if err != nil {
			h.logger.Warn(c.Request.Context(), "request limit unavailable", "ip", c.ClientIP(), "error", err)
			c.Next()
			return
		}

		c.Header(headerLimit, strconv.Itoa(h.limiter.MaxCalls()))
		if limit.IsLimitReached {
			c.Header(headerRemaining, "0")
			h.respondError(c, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithContext(c.ClientIP())))
			return
		}

		c.Header(headerRemaining, strconv.Itoa(limit.RemainingLimit))
		c.Header(headerReset, strconv.FormatInt(limit.CurrentLimitExpiration.Unix(), 10))
		c.Next()
	}
}

// ValidateQuery rejects malformed addresses and page parameters before any
// handler runs.
func (h *Handler) ValidateQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range addressParams {
			if v, ok := c.GetQuery(name); ok && !common.IsHexAddress(v) {
				h.respondError(c, apperror.New(apperror.CodeInvalidAddress,
					apperror.WithContext(name+"="+v)))
				return
			}
		}
		for _, name := range []string{"page", "per_page"} {
			if v, ok := c.GetQuery(name); ok {
				if _, err := strconv.Atoi(v); err != nil {
					h.respondError(c, apperror.New(apperror.CodeInvalidInput,
						apperror.WithMessage(name+" must be an integer"),
						apperror.WithContext(name+"="+v)))
					return
				}
			}
		}
		c.Next()
	}
}
