package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platformbuilds/alertdesk/internal/models"
)

var errUpstream = &models.NetworkError{Op: "test", Status: 500, Err: errors.New("boom")}

// fakeAPI is an in-memory IncidentAPI. Setting one of the *Err fields makes
// the matching call fail.
type fakeAPI struct {
	mu sync.Mutex

	incident models.Incident
	acks     []models.Acknowledgement
	events   []models.Event
	metadata models.AlertMetadata
	filters  []models.Filter
	alerts   []models.Alert

	getIncidentErr error
	acksErr        error
	eventsErr      error
	closeErr       error
	reopenErr      error
	ticketErr      error
	ackErr         error
	metadataErr    error
	filtersErr     error
	postFilterErr  error
	deleteErr      error
	previewErr     error

	// blockEvents, blockAcks and blockMetadata hold the matching fetch until
	// closed.
	blockEvents   chan struct{}
	blockAcks     chan struct{}
	blockMetadata chan struct{}

	calls         []string
	ticketBodies  []*string
	ackBodies     []models.AcknowledgementBody
	postedFilters []models.PostFilterBody
	previewed     []models.FilterDefinition
	nextPK        int
}

func (f *fakeAPI) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) GetIncident(ctx context.Context, pk models.PK) (models.Incident, error) {
	f.called("GetIncident")
	if f.getIncidentErr != nil {
		return models.Incident{}, f.getIncidentErr
	}
	inc := f.incident
	inc.PK = pk
	return inc, nil
}

func (f *fakeAPI) GetIncidentAcks(ctx context.Context, pk models.PK) ([]models.Acknowledgement, error) {
	f.called("GetIncidentAcks")
	if f.blockAcks != nil {
		select {
		case <-f.blockAcks:
		case <-ctx.Done():
			return nil, &models.NetworkError{Op: "get_incident_acks", Err: ctx.Err()}
		}
	}
	return f.acks, f.acksErr
}

func (f *fakeAPI) GetIncidentEvents(ctx context.Context, pk models.PK) ([]models.Event, error) {
	f.called("GetIncidentEvents")
	if f.blockEvents != nil {
		select {
		case <-f.blockEvents:
		case <-ctx.Done():
			return nil, &models.NetworkError{Op: "get_incident_events", Err: ctx.Err()}
		}
	}
	return f.events, f.eventsErr
}

func (f *fakeAPI) PostIncidentCloseEvent(ctx context.Context, pk models.PK, description string) (models.Event, error) {
	f.called("PostIncidentCloseEvent")
	if f.closeErr != nil {
		return models.Event{}, f.closeErr
	}
	return models.Event{
		PK:          "100",
		Incident:    pk,
		Actor:       models.Actor{PK: "1", Username: "alice"},
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Type:        models.EventType{Value: models.EventClose, Display: "Close"},
		Description: description,
	}, nil
}

func (f *fakeAPI) PostIncidentReopenEvent(ctx context.Context, pk models.PK) (models.Event, error) {
	f.called("PostIncidentReopenEvent")
	if f.reopenErr != nil {
		return models.Event{}, f.reopenErr
	}
	return models.Event{
		PK:        "101",
		Incident:  pk,
		Actor:     models.Actor{PK: "1", Username: "alice"},
		Timestamp: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		Type:      models.EventType{Value: models.EventReopen, Display: "Reopen"},
	}, nil
}

func (f *fakeAPI) PatchIncidentTicketURL(ctx context.Context, pk models.PK, ticketURL *string) (models.IncidentTicketURLBody, error) {
	f.called("PatchIncidentTicketURL")
	f.mu.Lock()
	f.ticketBodies = append(f.ticketBodies, ticketURL)
	f.mu.Unlock()
	if f.ticketErr != nil {
		return models.IncidentTicketURLBody{}, f.ticketErr
	}
	return models.IncidentTicketURLBody{TicketURL: ticketURL}, nil
}

func (f *fakeAPI) PostAck(ctx context.Context, pk models.PK, body models.AcknowledgementBody) (models.Acknowledgement, error) {
	f.called("PostAck")
	f.mu.Lock()
	f.ackBodies = append(f.ackBodies, body)
	f.mu.Unlock()
	if f.ackErr != nil {
		return models.Acknowledgement{}, f.ackErr
	}
	ack := models.Acknowledgement{
		PK: "200",
		Event: models.Event{
			PK:          "201",
			Incident:    pk,
			Actor:       models.Actor{PK: "1", Username: "alice"},
			Timestamp:   body.Event.Timestamp,
			Type:        models.EventType{Value: models.EventAck, Display: "Acknowledged"},
			Description: body.Event.Description,
		},
	}
	if body.Expiration != nil {
		ack.Expiration = models.SomeTime(*body.Expiration)
	}
	return ack, nil
}

func (f *fakeAPI) GetAllAlertsMetadata(ctx context.Context) (models.AlertMetadata, error) {
	f.called("GetAllAlertsMetadata")
	if f.blockMetadata != nil {
		select {
		case <-f.blockMetadata:
		case <-ctx.Done():
			return models.AlertMetadata{}, &models.NetworkError{Op: "get_alerts_metadata", Err: ctx.Err()}
		}
	}
	return f.metadata, f.metadataErr
}

func (f *fakeAPI) GetAllFilters(ctx context.Context) ([]models.Filter, error) {
	f.called("GetAllFilters")
	return f.filters, f.filtersErr
}

func (f *fakeAPI) PostFilter(ctx context.Context, name, filterString string) (models.Filter, error) {
	f.called("PostFilter")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postedFilters = append(f.postedFilters, models.PostFilterBody{Name: name, FilterString: filterString})
	if f.postFilterErr != nil {
		return models.Filter{}, f.postFilterErr
	}
	f.nextPK++
	return models.Filter{PK: models.PK("9" + string(rune('0'+f.nextPK))), Name: name, FilterString: filterString}, nil
}

func (f *fakeAPI) DeleteFilter(ctx context.Context, pk models.PK) error {
	f.called("DeleteFilter")
	return f.deleteErr
}

func (f *fakeAPI) PostFilterPreview(ctx context.Context, def models.FilterDefinition) ([]models.Alert, error) {
	f.called("PostFilterPreview")
	f.mu.Lock()
	f.previewed = append(f.previewed, def)
	f.mu.Unlock()
	return f.alerts, f.previewErr
}

func (f *fakeAPI) HealthCheck(ctx context.Context) error {
	f.called("HealthCheck")
	return nil
}
