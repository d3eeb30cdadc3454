package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/folio/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Logger injects a request-scoped logger and logs each request on completion.
// An incoming X-Request-ID is kept so callers can correlate their own logs.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithFields(c.Request.Context(), logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}
		status := c.Writer.Status()

		entry := logger.With(logger.Fields{
			logger.FieldStatus:     status,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldSize:       c.Writer.Size(),
		})
		// Handlers may have added fields such as the session ID.
		ctx = c.Request.Context()
		switch {
		case status >= 500:
			entry.Error(ctx, "Request completed: method=%s, path=%s, client_ip=%s", c.Request.Method, path, c.ClientIP())
		case status >= 400:
			entry.Warn(ctx, "Request completed: method=%s, path=%s, client_ip=%s", c.Request.Method, path, c.ClientIP())
		default:
			entry.Info(ctx, "Request completed: method=%s, path=%s", c.Request.Method, path)
		}
	}
}
