package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rewards-service/internal/metrics"
)

// RequestLogger logs one line per request. Bodies and auth headers are
// never logged.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		startedAt := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("raw_path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startedAt)),
		}
		if actor, ok := GetActor(c); ok {
			fields = append(fields, zap.Uint("user_id", actor.ID), zap.String("role", actor.Role))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			logger.Error("http request completed", fields...)
			return
		}
		if c.Writer.Status() >= 400 {
			logger.Warn("http request completed", fields...)
			return
		}
		logger.Info("http request completed", fields...)
	}
}

// Metrics records request latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(startedAt))
	}
}
