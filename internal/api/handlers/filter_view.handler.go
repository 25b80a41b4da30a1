package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// FilterViewHandler exposes the filter table presenter.
type FilterViewHandler struct {
	registry *services.ViewRegistry
	logger   logger.Logger
}

func NewFilterViewHandler(registry *services.ViewRegistry, logger logger.Logger) *FilterViewHandler {
	return &FilterViewHandler{registry: registry, logger: logger}
}

type createFilterRequest struct {
	Name       string                  `json:"name"`
	Definition models.FilterDefinition `json:"definition"`
}

// previewRequest selects a stored filter or an ad-hoc definition. Setting
// neither clears the preview.
type previewRequest struct {
	FilterPK   models.PK                `json:"filter_pk"`
	Definition *models.FilterDefinition `json:"definition"`
}

// POST /api/v1/views/filters
func (h *FilterViewHandler) Mount(c *gin.Context) {
	view, err := h.registry.MountFilters(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	respondMounted(c, view.ID(), view.Snapshot())
}

// POST /api/v1/views/:id/filters
func (h *FilterViewHandler) CreateFilter(c *gin.Context) {
	var req createFilterRequest
	h.run(c, &req, func(v *services.FilterViewService) error {
		return v.CreateFilter(c.Request.Context(), req.Name, req.Definition)
	})
}

// DELETE /api/v1/views/:id/filters/:pk
func (h *FilterViewHandler) DeleteFilter(c *gin.Context) {
	h.run(c, nil, func(v *services.FilterViewService) error {
		return v.DeleteFilter(c.Request.Context(), models.PK(c.Param("pk")))
	})
}

// POST /api/v1/views/:id/preview
func (h *FilterViewHandler) Preview(c *gin.Context) {
	var req previewRequest
	h.run(c, &req, func(v *services.FilterViewService) error {
		switch {
		case req.FilterPK != "":
			return v.PreviewFilter(req.FilterPK)
		case req.Definition != nil:
			return v.PreviewDefinition(req.Definition)
		default:
			return v.ClearPreview()
		}
	})
}

// GET /api/v1/views/:id/preview/alerts
func (h *FilterViewHandler) PreviewAlerts(c *gin.Context) {
	view, err := h.registry.Filters(c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	result, err := view.FetchPreview(c.Request.Context())
	if err != nil {
		fail(c, err, view.Snapshot())
		return
	}
	respond(c, http.StatusOK, view.ID(), result)
}

// POST /api/v1/views/:id/dialog/close
func (h *FilterViewHandler) CloseDialog(c *gin.Context) {
	h.run(c, nil, func(v *services.FilterViewService) error {
		return v.CloseDialog()
	})
}

func (h *FilterViewHandler) run(c *gin.Context, body interface{}, op func(*services.FilterViewService) error) {
	view, err := h.registry.Filters(c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	if body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(body); err != nil {
			fail(c, bindError(err), view.Snapshot())
			return
		}
	}
	if err := op(view); err != nil {
		fail(c, err, view.Snapshot())
		return
	}
	respond(c, http.StatusOK, view.ID(), view.Snapshot())
}
