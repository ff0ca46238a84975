package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			fields["analysis_id"] = id
		}
		telemetry.Info("request.complete", fields)
	}
}
