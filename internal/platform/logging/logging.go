// Package logging threads a request/run-scoped *slog.Logger through
// context.Context for any unit of work: an HTTP request, a webhook
// delivery, or a reconciliation run.
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const loggerCtxKey = contextKey("logger")

// WithLogger returns a context carrying logger, retrievable via FromContext.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// FromContext retrieves the scoped logger, or slog.Default() if none was set.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// NewRunLogger builds a logger scoped to a background unit of work (a
// reconciliation run, a webhook delivery) identified by kind and id.
func NewRunLogger(base *slog.Logger, kind, id string) *slog.Logger {
	return base.With(slog.String("run_kind", kind), slog.String("run_id", id))
}

// GinMiddleware injects a request-scoped logger into the standard
// context.Context for the one HTTP surface BigFin retains (webhook
// ingestion).
func GinMiddleware(baseLogger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()

		requestLogger := baseLogger.With(
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), requestLogger))

		c.Next()

		FromContext(c.Request.Context()).Info("request completed",
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
