package api

import (
	"time"

	"cs-portal/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger replaces gin's default access log with structured entries.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if id := SessionID(c); id != "" {
			fields["session_id"] = id
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields)
		case status >= 400:
			log.Warn("request", fields)
		default:
			log.Debug("request", fields)
		}
	}
}
