package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/monitoring"
)

// MetricsMiddleware records request count and latency per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		monitoring.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
