package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/api/middleware"
	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// ViewHandler serves the operations every mounted view shares.
type ViewHandler struct {
	registry *services.ViewRegistry
	logger   logger.Logger
}

func NewViewHandler(registry *services.ViewRegistry, logger logger.Logger) *ViewHandler {
	return &ViewHandler{registry: registry, logger: logger}
}

// GET /api/v1/views/:id
func (h *ViewHandler) GetView(c *gin.Context) {
	view, err := h.registry.Get(c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	respond(c, http.StatusOK, view.ID(), view.Render())
}

// DELETE /api/v1/views/:id
func (h *ViewHandler) UnmountView(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Unmount(id); err != nil {
		fail(c, err, nil)
		return
	}
	c.Header(middleware.ViewIDHeader, id)
	c.Status(http.StatusNoContent)
}

type mountResponse struct {
	ViewID string      `json:"view_id"`
	View   interface{} `json:"view"`
}

func respondMounted(c *gin.Context, id string, view interface{}) {
	c.Set(middleware.ViewIDKey, id)
	c.Header(middleware.ViewIDHeader, id)
	c.JSON(http.StatusCreated, mountResponse{ViewID: id, View: view})
}

func respond(c *gin.Context, status int, id string, view interface{}) {
	c.Set(middleware.ViewIDKey, id)
	c.Header(middleware.ViewIDHeader, id)
	c.JSON(status, view)
}

// fail hands err to the error middleware together with the current snapshot.
func fail(c *gin.Context, err error, view interface{}) {
	if view != nil {
		c.Set(middleware.ViewKey, view)
	}
	_ = c.Error(err)
}

func bindError(err error) error {
	return &models.ValidationError{Field: "body", Message: err.Error()}
}
