package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// RequestLogger routes gin's access log into the structured logger. The
// level follows the status class.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		fields := []interface{}{
			"method", param.Method,
			"path", param.Path,
			"status", param.StatusCode,
			"latency", param.Latency,
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
			"request_id", param.Request.Header.Get("X-Request-ID"),
		}
		if id, ok := param.Keys[ViewIDKey].(string); ok && id != "" {
			fields = append(fields, "view_id", id)
		}
		if param.ErrorMessage != "" {
			fields = append(fields, "error", param.ErrorMessage)
		}

		switch {
		case param.StatusCode >= 500:
			log.Error("HTTP Request", fields...)
		case param.StatusCode >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
		return ""
	})
}
