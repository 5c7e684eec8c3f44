package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-journal/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an ID, carries a request-scoped logger
// on the request context and logs the outcome.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" || len(reqID) > 64 {
			reqID = uuid.New().String()
		}
		c.Header(requestIDHeader, reqID)

		reqLogger := logger.With().Str("request_id", reqID).Logger()
		ctx := context.WithValue(c.Request.Context(), logging.RequestIDKey, reqID)
		ctx = logging.WithLogger(ctx, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logging.LogRequest(reqLogger, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// recovery turns a handler panic into a 500 and logs it.
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger := logging.FromContext(c.Request.Context())
		logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "internal server error",
		})
	})
}
