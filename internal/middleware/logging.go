package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"

	"titanhub/internal/apperror"
	"titanhub/internal/logging"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id (reusing a well-formed
// X-Request-ID from the client) and logs it once it completes.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if _, err := xid.FromString(id); err != nil {
			id = xid.New().String()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if u := CurrentUser(c); u != nil {
			attrs = append(attrs, "user_id", u.ID)
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "request completed", attrs...)
		case status >= 400:
			log.WarnContext(ctx, "request completed", attrs...)
		default:
			log.InfoContext(ctx, "request completed", attrs...)
		}
	}
}

// Recovery turns a panic into the generic internal error response.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(500, gin.H{
			"error":   apperror.CodeInternal,
			"message": apperror.InternalMessage,
		})
	})
}
