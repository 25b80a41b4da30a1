package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// IncidentViewHandler exposes the incident details presenter.
type IncidentViewHandler struct {
	registry *services.ViewRegistry
	logger   logger.Logger
}

func NewIncidentViewHandler(registry *services.ViewRegistry, logger logger.Logger) *IncidentViewHandler {
	return &IncidentViewHandler{registry: registry, logger: logger}
}

type closeIncidentRequest struct {
	Reason string `json:"reason"`
}

type ackRequest struct {
	Message    string     `json:"message"`
	Expiration *time.Time `json:"expiration"`
}

type ticketDraftRequest struct {
	URL string `json:"url"`
}

// POST /api/v1/views/incidents/:pk
func (h *IncidentViewHandler) Mount(c *gin.Context) {
	view, err := h.registry.MountIncident(c.Request.Context(), models.PK(c.Param("pk")))
	if err != nil {
		fail(c, err, nil)
		return
	}
	respondMounted(c, view.ID(), view.Snapshot())
}

// POST /api/v1/views/:id/close
func (h *IncidentViewHandler) Close(c *gin.Context) {
	var req closeIncidentRequest
	h.run(c, &req, func(v *services.IncidentDetailsService) error {
		return v.ManualClose(c.Request.Context(), req.Reason)
	})
}

// POST /api/v1/views/:id/reopen
func (h *IncidentViewHandler) Reopen(c *gin.Context) {
	h.run(c, nil, func(v *services.IncidentDetailsService) error {
		return v.ManualOpen(c.Request.Context())
	})
}

// POST /api/v1/views/:id/acks
func (h *IncidentViewHandler) Acknowledge(c *gin.Context) {
	var req ackRequest
	h.run(c, &req, func(v *services.IncidentDetailsService) error {
		return v.SubmitAcknowledgement(c.Request.Context(), req.Message, req.Expiration)
	})
}

// POST /api/v1/views/:id/ticket/edit
func (h *IncidentViewHandler) BeginTicketEdit(c *gin.Context) {
	h.run(c, nil, func(v *services.IncidentDetailsService) error {
		return v.BeginTicketEdit()
	})
}

// PUT /api/v1/views/:id/ticket/draft
func (h *IncidentViewHandler) SetTicketDraft(c *gin.Context) {
	var req ticketDraftRequest
	h.run(c, &req, func(v *services.IncidentDetailsService) error {
		return v.SetTicketDraft(req.URL)
	})
}

// POST /api/v1/views/:id/ticket/save
func (h *IncidentViewHandler) SaveTicket(c *gin.Context) {
	h.run(c, nil, func(v *services.IncidentDetailsService) error {
		return v.SaveTicket(c.Request.Context())
	})
}

// POST /api/v1/views/:id/ticket/cancel
func (h *IncidentViewHandler) CancelTicketEdit(c *gin.Context) {
	h.run(c, nil, func(v *services.IncidentDetailsService) error {
		return v.CancelTicketEdit()
	})
}

// run resolves the view, binds the body when one was sent and answers with
// the snapshot taken after op.
func (h *IncidentViewHandler) run(c *gin.Context, body interface{}, op func(*services.IncidentDetailsService) error) {
	view, err := h.registry.Incident(c.Param("id"))
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
