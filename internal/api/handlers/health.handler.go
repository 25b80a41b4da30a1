package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/internal/version"
	"github.com/platformbuilds/alertdesk/pkg/cache"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

const serviceName = "alertdesk"

type HealthHandler struct {
	api      services.IncidentAPI
	cache    cache.Cache
	registry *services.ViewRegistry
	logger   logger.Logger
}

func NewHealthHandler(api services.IncidentAPI, c cache.Cache, registry *services.ViewRegistry, logger logger.Logger) *HealthHandler {
	return &HealthHandler{api: api, cache: c, registry: registry, logger: logger}
}

// GET /health - Quick health check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   version.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - the upstream must answer. A cache that fell back to memory
// only degrades readiness.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	ready := true

	if err := h.api.HealthCheck(ctx); err != nil {
		checks["upstream"] = gin.H{"status": "unhealthy", "error": err.Error()}
		ready = false
		h.logger.Warn("Readiness: upstream unavailable", "error", err)
	} else {
		checks["upstream"] = gin.H{"status": "healthy"}
	}

	if h.cache != nil {
		switch err := h.cache.HealthCheck(ctx); {
		case err == nil:
			checks["cache"] = gin.H{"status": "healthy"}
		case errors.Is(err, cache.ErrInMemory):
			checks["cache"] = gin.H{"status": "degraded", "error": err.Error()}
		default:
			checks["cache"] = gin.H{"status": "unhealthy", "error": err.Error()}
			ready = false
		}
	}

	status, httpStatus := "healthy", http.StatusOK
	if !ready {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}
	resp := gin.H{
		"status":    status,
		"service":   serviceName,
		"version":   version.Version,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.registry != nil {
		resp["mounted_views"] = h.registry.Count()
	}
	c.JSON(httpStatus, resp)
}
