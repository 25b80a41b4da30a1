package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// Context keys and headers shared by handlers and middleware.
const (
	ViewIDKey    = "view_id"
	ViewKey      = "view"
	ViewIDHeader = "X-View-ID"
)

// ErrorResponse is the body of every failed view operation. View carries the
// snapshot after the failure so clients can re-render without another call.
type ErrorResponse struct {
	Error string      `json:"error"`
	Code  string      `json:"code"`
	View  interface{} `json:"view,omitempty"`
}

// ErrorHandler turns the last error attached with c.Error into an
// ErrorResponse, unless the handler already wrote a body.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := StatusFor(err)
		view, _ := c.Get(ViewKey)

		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err.Error(),
		}
		if status >= http.StatusInternalServerError {
			log.Error("View operation failed", fields...)
		} else {
			log.Warn("View operation rejected", fields...)
		}

		c.JSON(status, ErrorResponse{Error: err.Error(), Code: CodeFor(err), View: view})
	}
}

// StatusFor maps an operation error to its HTTP status.
func StatusFor(err error) int {
	var (
		ve *models.ValidationError
		ne *models.NetworkError
		le *models.LookupError
		de *models.DeserializationError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrViewNotFound), errors.Is(err, services.ErrUnknownFilter):
		return http.StatusNotFound
	case errors.Is(err, services.ErrWrongViewKind):
		return http.StatusConflict
	case errors.Is(err, services.ErrViewClosed):
		return http.StatusGone
	case errors.Is(err, services.ErrTooManyViews):
		return http.StatusTooManyRequests
	case errors.As(err, &le), errors.As(err, &de):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ne):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeFor is the machine-readable counterpart of StatusFor.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, services.ErrViewNotFound):
		return "view_not_found"
	case errors.Is(err, services.ErrUnknownFilter):
		return "filter_not_found"
	case errors.Is(err, services.ErrWrongViewKind):
		return "wrong_view_kind"
	case errors.Is(err, services.ErrViewClosed):
		return "view_closed"
	case errors.Is(err, services.ErrTooManyViews):
		return "too_many_views"
	default:
		return models.ErrorKind(err)
	}
}
