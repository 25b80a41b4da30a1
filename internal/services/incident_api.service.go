package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/platformbuilds/alertdesk/internal/config"
	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/monitoring"
	"github.com/platformbuilds/alertdesk/internal/tracing"
	"github.com/platformbuilds/alertdesk/pkg/cache"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// IncidentAPI is the upstream incident backend as seen by the presenters.
type IncidentAPI interface {
	GetIncident(ctx context.Context, pk models.PK) (models.Incident, error)
	GetIncidentAcks(ctx context.Context, pk models.PK) ([]models.Acknowledgement, error)
	GetIncidentEvents(ctx context.Context, pk models.PK) ([]models.Event, error)
	PostIncidentCloseEvent(ctx context.Context, pk models.PK, description string) (models.Event, error)
	PostIncidentReopenEvent(ctx context.Context, pk models.PK) (models.Event, error)
	PatchIncidentTicketURL(ctx context.Context, pk models.PK, ticketURL *string) (models.IncidentTicketURLBody, error)
	PostAck(ctx context.Context, pk models.PK, body models.AcknowledgementBody) (models.Acknowledgement, error)

	GetAllAlertsMetadata(ctx context.Context) (models.AlertMetadata, error)
	GetAllFilters(ctx context.Context) ([]models.Filter, error)
	PostFilter(ctx context.Context, name, filterString string) (models.Filter, error)
	DeleteFilter(ctx context.Context, pk models.PK) error
	PostFilterPreview(ctx context.Context, def models.FilterDefinition) ([]models.Alert, error)

	HealthCheck(ctx context.Context) error
}

const metadataCacheKey = "metadata:alerts"

// IncidentAPIService talks JSON over HTTP to the upstream. It never retries;
// every failure surfaces as a *models.NetworkError.
type IncidentAPIService struct {
	baseURL  string
	client   *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	logger   logger.Logger
	tracer   tracing.UpstreamTracer

	mu    sync.RWMutex
	token string
}

func NewIncidentAPIService(cfg config.UpstreamConfig, c cache.Cache, cacheTTL time.Duration, logger logger.Logger) *IncidentAPIService {
	return &IncidentAPIService{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
		token:    cfg.Token,
	}
}

// SetToken replaces the API token used for subsequent calls.
func (s *IncidentAPIService) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.logger.Info("Upstream API token updated")
}

func (s *IncidentAPIService) currentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func incidentPath(pk models.PK, suffix string) string {
	return fmt.Sprintf("/api/v1/incidents/%s/%s", pk, suffix)
}

func (s *IncidentAPIService) GetIncident(ctx context.Context, pk models.PK) (models.Incident, error) {
	var out models.Incident
	err := s.do(ctx, "get_incident", http.MethodGet, incidentPath(pk, ""), nil, &out)
	return out, err
}

func (s *IncidentAPIService) GetIncidentAcks(ctx context.Context, pk models.PK) ([]models.Acknowledgement, error) {
	var out []models.Acknowledgement
	err := s.do(ctx, "get_incident_acks", http.MethodGet, incidentPath(pk, "acks/"), nil, &out)
	return out, err
}

func (s *IncidentAPIService) GetIncidentEvents(ctx context.Context, pk models.PK) ([]models.Event, error) {
	var out []models.Event
	err := s.do(ctx, "get_incident_events", http.MethodGet, incidentPath(pk, "events/"), nil, &out)
	return out, err
}

func (s *IncidentAPIService) PostIncidentCloseEvent(ctx context.Context, pk models.PK, description string) (models.Event, error) {
	var out models.Event
	body := models.IncidentEventBody{Type: models.EventClose, Description: description}
	err := s.do(ctx, "post_close_event", http.MethodPost, incidentPath(pk, "events/"), body, &out)
	return out, err
}

func (s *IncidentAPIService) PostIncidentReopenEvent(ctx context.Context, pk models.PK) (models.Event, error) {
	var out models.Event
	body := models.IncidentEventBody{Type: models.EventReopen}
	err := s.do(ctx, "post_reopen_event", http.MethodPost, incidentPath(pk, "events/"), body, &out)
	return out, err
}

// PatchIncidentTicketURL sets the ticket URL. A nil url clears it; the body
// then carries no ticket_url field at all.
func (s *IncidentAPIService) PatchIncidentTicketURL(ctx context.Context, pk models.PK, ticketURL *string) (models.IncidentTicketURLBody, error) {
	var out models.IncidentTicketURLBody
	err := s.do(ctx, "put_ticket_url", http.MethodPut, incidentPath(pk, "ticket_url/"), models.IncidentTicketURLBody{TicketURL: ticketURL}, &out)
	return out, err
}

func (s *IncidentAPIService) PostAck(ctx context.Context, pk models.PK, body models.AcknowledgementBody) (models.Acknowledgement, error) {
	var out models.Acknowledgement
	err := s.do(ctx, "post_ack", http.MethodPost, incidentPath(pk, "acks/"), body, &out)
	return out, err
}

// GetAllAlertsMetadata always asks the upstream. Every successful response is
// written to the cache, and the cached copy is only served when the upstream
// call fails.
func (s *IncidentAPIService) GetAllAlertsMetadata(ctx context.Context) (models.AlertMetadata, error) {
	var out models.AlertMetadata
	err := s.do(ctx, "get_alerts_metadata", http.MethodGet, "/api/v1/alerts/metadata/", nil, &out)
	if err == nil {
		if s.cache != nil {
			if err := s.cache.Set(ctx, metadataCacheKey, out, s.cacheTTL); err != nil {
				s.logger.Warn("Metadata cache write failed", "error", err)
			}
		}
		return out, nil
	}

	if cached, ok := s.lastKnownMetadata(ctx); ok {
		s.logger.Warn("Serving last known metadata", "error", err)
		return cached, nil
	}
	return models.AlertMetadata{}, err
}

func (s *IncidentAPIService) lastKnownMetadata(ctx context.Context) (models.AlertMetadata, bool) {
	var out models.AlertMetadata
	if s.cache == nil || ctx.Err() != nil {
		return out, false
	}
	b, err := s.cache.Get(ctx, metadataCacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Metadata cache read failed", "error", err)
		}
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		s.logger.Warn("Discarding undecodable cached metadata", "key", metadataCacheKey)
		if err := s.cache.Delete(ctx, metadataCacheKey); err != nil {
			s.logger.Warn("Metadata cache delete failed", "error", err)
		}
		return models.AlertMetadata{}, false
	}
	return out, true
}

func (s *IncidentAPIService) GetAllFilters(ctx context.Context) ([]models.Filter, error) {
	var out []models.Filter
	err := s.do(ctx, "get_filters", http.MethodGet, "/api/v1/notificationprofiles/filters/", nil, &out)
	return out, err
}

func (s *IncidentAPIService) PostFilter(ctx context.Context, name, filterString string) (models.Filter, error) {
	var out models.Filter
	body := models.PostFilterBody{Name: name, FilterString: filterString}
	err := s.do(ctx, "post_filter", http.MethodPost, "/api/v1/notificationprofiles/filters/", body, &out)
	return out, err
}

func (s *IncidentAPIService) DeleteFilter(ctx context.Context, pk models.PK) error {
	return s.do(ctx, "delete_filter", http.MethodDelete, fmt.Sprintf("/api/v1/notificationprofiles/filters/%s/", pk), nil, nil)
}

func (s *IncidentAPIService) PostFilterPreview(ctx context.Context, def models.FilterDefinition) ([]models.Alert, error) {
	var out []models.Alert
	err := s.do(ctx, "post_filter_preview", http.MethodPost, "/api/v1/notificationprofiles/filterpreview/", def, &out)
	return out, err
}

// HealthCheck verifies the upstream answers and accepts the token.
func (s *IncidentAPIService) HealthCheck(ctx context.Context) error {
	return s.do(ctx, "health_check", http.MethodGet, "/api/v1/auth/user/", nil, nil)
}

func (s *IncidentAPIService) do(ctx context.Context, op, method, path string, in, out interface{}) (err error) {
	start := time.Now()
	status := 0
	ctx, span := s.tracer.StartUpstreamSpan(ctx, op, method, path)
	defer func() {
		monitoring.RecordUpstreamCall(op, status, time.Since(start))
		if status != 0 {
			tracing.RecordStatus(span, status)
		}
		if err != nil {
			tracing.RecordError(span, err)
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		b, mErr := json.Marshal(in)
		if mErr != nil {
			return &models.NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", mErr)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return &models.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := s.currentToken(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Upstream request failed (transport)", "op", op, "method", method, "path", path, "error", err)
		return &models.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := readBodySnippet(resp.Body)
		s.logger.Warn("Upstream returned error status", "op", op, "method", method, "path", path, "status", resp.StatusCode, "body", snippet)
		return &models.NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(statusMessage(resp.StatusCode, snippet))}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &models.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	s.logger.Debug("Upstream request completed", "op", op, "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))
	return nil
}

func statusMessage(status int, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return http.StatusText(status)
	}
	return body
}

func readBodySnippet(r io.Reader) string {
	const max = 8 << 10 // 8KB
	b, _ := io.ReadAll(io.LimitReader(r, max))
	return string(b)
}
