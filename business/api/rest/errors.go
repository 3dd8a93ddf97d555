package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

// respondError renders err as an apperror body and aborts the chain.
// Errors that are not an *apperror.AppError become internal errors.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(apperror.CodeInternalError, c.FullPath(), err)
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		appErr.WithTraceID(sc.TraceID().String())
	}

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	args := append([]any{"path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey)}, appErr.LogArgs()...)
	if status >= http.StatusInternalServerError {
		h.logger.Errorc(c.Request.Context(), 1, "request failed", args...)
	} else {
		h.logger.Debugc(c.Request.Context(), 1, "request rejected", args...)
	}

	c.AbortWithStatusJSON(status, appErr.ToResponse())
}
