package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/config"
)

const (
	defaultAllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	defaultAllowedHeaders = "Origin, Content-Type, Accept, Authorization"
	defaultMaxAge         = "43200"
)

// CORSMiddleware lets the dashboard frontend call the view API from another
// origin.
func CORSMiddleware(corsConfig config.CORSConfig) gin.HandlerFunc {
	methods := joinOr(corsConfig.AllowedMethods, defaultAllowedMethods)
	headers := joinOr(corsConfig.AllowedHeaders, defaultAllowedHeaders)
	exposed := joinOr(corsConfig.ExposedHeaders, ViewIDHeader)
	maxAge := defaultMaxAge
	if corsConfig.MaxAge > 0 {
		maxAge = strconv.Itoa(corsConfig.MaxAge)
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if isOriginAllowed(origin, corsConfig.AllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Expose-Headers", exposed)
		c.Header("Access-Control-Max-Age", maxAge)
		if corsConfig.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

// isOriginAllowed matches exact origins, "*" and "*.domain" wildcards. With
// no configured origins only local development origins pass.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	if len(allowedOrigins) == 0 {
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	}
	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", allowed == origin:
			return true
		case strings.HasPrefix(allowed, "*."):
			if strings.HasSuffix(origin, strings.TrimPrefix(allowed, "*")) {
				return true
			}
		}
	}
	return false
}
