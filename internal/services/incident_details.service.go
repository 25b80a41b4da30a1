package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platformbuilds/alertdesk/internal/acks"
	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/tracing"
	"github.com/platformbuilds/alertdesk/internal/utils"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

const (
	placeholderRows = 3
	invalidURLText  = "Invalid URL"
	moreDetailsText = "More details"
	emptyDetailText = "–"
)

// Rows shown while acks and events are loading.
var (
	placeholderEvent = models.Event{
		PK:        "1",
		Incident:  "1",
		Actor:     models.Actor{PK: "2", Username: "test"},
		Timestamp: time.Date(2011, 11, 11, 11, 11, 11, 0, time.FixedZone("", 2*60*60)),
		Type:      models.EventType{Value: models.EventIncidentStart, Display: "Incident start"},
	}
	placeholderAck = models.Acknowledgement{
		PK:         "1",
		Event:      placeholderEvent,
		Expiration: models.SomeTime(time.Date(2020, 2, 14, 3, 4, 14, 387000000, time.FixedZone("", 60*60))),
	}
)

// IncidentDetailsService presents one incident: status, tags, details,
// ticket URL, acknowledgements and events. All state changes go through its
// mutex and every change publishes a fresh snapshot.
type IncidentDetailsService struct {
	viewBase

	api    IncidentAPI
	logger logger.Logger
	tracer tracing.UpstreamTracer
	now    func() time.Time

	mu            sync.Mutex
	incident      models.Incident
	acks          []models.Acknowledgement
	pendingAcks   []models.Acknowledgement
	events        []models.Event
	acksLoading   bool
	eventsLoading bool
	ticket        models.TicketEditor
	notification  *models.Notification
}

func NewIncidentDetailsService(parent context.Context, id string, api IncidentAPI, incident models.Incident, logger logger.Logger) *IncidentDetailsService {
	return &IncidentDetailsService{
		viewBase:      newViewBase(parent, id, models.ViewKindIncident),
		api:           api,
		logger:        logger.With("view_id", id, "incident", incident.PK.String()),
		now:           time.Now,
		incident:      incident,
		acksLoading:   true,
		eventsLoading: true,
	}
}

// Load fetches acks and events concurrently. Each list leaves its loading
// state as soon as its own fetch finishes; a failed fetch leaves an empty
// list and an error notification. The first fetch error is returned.
func (s *IncidentDetailsService) Load(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, span := s.tracer.StartViewSpan(ctx, s.kind, "load")
	defer span.End()

	pk := s.incident.PK

	var g errgroup.Group
	g.Go(func() error {
		list, err := s.api.GetIncidentAcks(ctx, pk)
		return s.apply(func() {
			s.acksLoading = false
			if err != nil {
				s.acks = nil
				s.notifyError(fmt.Sprintf("Failed to fetch acknowledgements for incident %s - %v", pk, err))
			} else {
				s.acks = acks.Sort(list)
			}
			s.mergePendingAcksLocked()
		}, err)
	})
	g.Go(func() error {
		list, err := s.api.GetIncidentEvents(ctx, pk)
		return s.apply(func() {
			s.eventsLoading = false
			if err != nil {
				s.events = nil
				s.notifyError(fmt.Sprintf("Failed to fetch events for incident %s - %v", pk, err))
				return
			}
			s.events = list
		}, err)
	})

	err := g.Wait()
	if err != nil {
		tracing.RecordError(span, err)
		s.logger.Warn("Incident view load incomplete", "error", err)
	}
	s.record("load", err)
	return err
}

// ManualClose closes an open incident with a required reason.
func (s *IncidentDetailsService) ManualClose(ctx context.Context, reason string) error {
	if strings.TrimSpace(reason) == "" {
		err := &models.ValidationError{Field: "reason", Message: "a reason is required to close an incident"}
		s.record("close", err)
		return err
	}
	s.mu.Lock()
	open, pk := s.incident.Open, s.incident.PK
	s.mu.Unlock()
	if !open {
		err := &models.ValidationError{Field: "open", Message: "incident is already closed"}
		s.record("close", err)
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	event, err := s.api.PostIncidentCloseEvent(ctx, pk, reason)
	err = s.apply(func() {
		if err != nil {
			s.notifyError(fmt.Sprintf("Failed to close incident %s - %v", pk, err))
			return
		}
		s.incident.Open = false
		s.events = append(s.events, event)
		s.notifySuccess(fmt.Sprintf("Closed incident %s", pk))
	}, err)
	s.logResult("close", err)
	return err
}

// ManualOpen reopens a closed incident.
func (s *IncidentDetailsService) ManualOpen(ctx context.Context) error {
	s.mu.Lock()
	open, pk := s.incident.Open, s.incident.PK
	s.mu.Unlock()
	if open {
		err := &models.ValidationError{Field: "open", Message: "incident is already open"}
		s.record("reopen", err)
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	event, err := s.api.PostIncidentReopenEvent(ctx, pk)
	err = s.apply(func() {
		if err != nil {
			s.notifyError(fmt.Sprintf("Failed to reopen incident %s - %v", pk, err))
			return
		}
		s.incident.Open = true
		s.events = append(s.events, event)
		s.notifySuccess(fmt.Sprintf("Reopened incident %s", pk))
	}, err)
	s.logResult("reopen", err)
	return err
}

// SubmitAcknowledgement posts an ack stamped with the current time. On
// success only the acked flag of the local incident is patched. An ack that
// lands while the list is still loading is held back and merged afterwards.
func (s *IncidentDetailsService) SubmitAcknowledgement(ctx context.Context, message string, expiration *time.Time) error {
	if strings.TrimSpace(message) == "" {
		err := &models.ValidationError{Field: "message", Message: "an acknowledgement message is required"}
		s.record("ack", err)
		return err
	}
	pk := s.incident.PK
	body := models.AcknowledgementBody{
		Event:      models.AckEventBody{Description: message, Timestamp: s.now()},
		Expiration: expiration,
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ack, err := s.api.PostAck(ctx, pk, body)
	err = s.apply(func() {
		if err != nil {
			s.notifyError(fmt.Sprintf("Failed to post ack %v", err))
			return
		}
		s.incident.Acked = true
		if s.acksLoading {
			s.pendingAcks = append(s.pendingAcks, ack)
		} else {
			s.acks = acks.Insert(s.acks, ack)
		}
		s.notifySuccess(fmt.Sprintf("Submitted %s for %s", ack.Event.Type.Display, pk))
	}, err)
	s.logResult("ack", err)
	return err
}

// BeginTicketEdit switches the ticket field into editing mode, seeded with
// the current URL.
func (s *IncidentDetailsService) BeginTicketEdit() error {
	return s.apply(func() {
		s.ticket = models.TicketEditor{Editing: true, Draft: s.incident.TicketURL}
	}, nil)
}

// SetTicketDraft updates the draft and its inline validation message.
func (s *IncidentDetailsService) SetTicketDraft(value string) error {
	return s.apply(func() {
		s.ticket.Editing = true
		s.ticket.Draft = value
		s.ticket.Error = ticketDraftError(value)
	}, nil)
}

func (s *IncidentDetailsService) CancelTicketEdit() error {
	return s.apply(func() {
		s.ticket = models.TicketEditor{}
	}, nil)
}

// SaveTicket stores the draft upstream. An invalid draft is rejected without
// a call; an empty draft clears the ticket URL. Saving outside editing mode
// does nothing.
func (s *IncidentDetailsService) SaveTicket(ctx context.Context) error {
	s.mu.Lock()
	if !s.ticket.Editing {
		s.mu.Unlock()
		return nil
	}
	draft := s.ticket.Draft
	if msg := ticketDraftError(draft); msg != "" {
		s.ticket.Error = msg
		s.publishLocked()
		s.mu.Unlock()
		err := &models.ValidationError{Field: "ticket_url", Message: msg}
		s.record("save_ticket", err)
		return err
	}
	s.ticket = models.TicketEditor{}
	s.publishLocked()
	pk := s.incident.PK
	s.mu.Unlock()

	var url *string
	if draft != "" {
		url = &draft
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	out, err := s.api.PatchIncidentTicketURL(ctx, pk, url)
	err = s.apply(func() {
		if err != nil {
			s.notifyError(fmt.Sprintf("Failed to updated ticket URL %v", err))
			return
		}
		s.incident.TicketURL = ""
		if out.TicketURL != nil {
			s.incident.TicketURL = *out.TicketURL
		}
		s.notifySuccess(fmt.Sprintf("Updated ticket URL for %s", pk))
	}, err)
	s.logResult("save_ticket", err)
	return err
}

// mergePendingAcksLocked adds acks submitted during loading unless the
// fetched list already has them.
func (s *IncidentDetailsService) mergePendingAcksLocked() {
	for _, ack := range s.pendingAcks {
		if !slices.ContainsFunc(s.acks, func(a models.Acknowledgement) bool { return a.PK == ack.PK }) {
			s.acks = acks.Insert(s.acks, ack)
		}
	}
	s.pendingAcks = nil
}

func ticketDraftError(value string) string {
	if value == "" || utils.IsAbsoluteURL(value) {
		return ""
	}
	return invalidURLText
}

// Snapshot renders the current state.
func (s *IncidentDetailsService) Snapshot() models.IncidentView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *IncidentDetailsService) Render() any { return s.Snapshot() }

// Close cancels in-flight calls and ends every subscription. Results that
// arrive afterwards are dropped.
func (s *IncidentDetailsService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.hub.close()
}

// apply runs patch under the lock and publishes the result. opErr is passed
// through so callers can return it; a closed view drops the patch.
func (s *IncidentDetailsService) apply(patch func(), opErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrViewClosed
	}
	patch()
	s.publishLocked()
	return opErr
}

func (s *IncidentDetailsService) publishLocked() {
	s.version++
	s.hub.publish(s.snapshotLocked())
}

func (s *IncidentDetailsService) notifySuccess(msg string) {
	s.notification = s.newNotification(msg, models.SeveritySuccess)
}

func (s *IncidentDetailsService) notifyError(msg string) {
	s.notification = s.newNotification(msg, models.SeverityError)
}

func (s *IncidentDetailsService) logResult(op string, err error) {
	s.record(op, err)
	if err != nil {
		s.logger.Warn("Incident operation failed", "op", op, "error", err)
		return
	}
	s.logger.Info("Incident operation succeeded", "op", op)
}

func (s *IncidentDetailsService) snapshotLocked() models.IncidentView {
	now := s.now()
	inc := s.incident

	v := models.IncidentView{
		ViewID:     s.id,
		Kind:       s.kind,
		Version:    s.version,
		IncidentPK: inc.PK,
		Status: models.IncidentStatus{
			Open:      inc.Open,
			Acked:     inc.Acked,
			TicketURL: inc.TicketURL,
		},
		Tags:    tagViews(inc.Tags),
		Details: primaryDetails(inc, now),
		Ticket:  s.ticket,
		Actions: models.IncidentActions{
			CanClose:  inc.Open,
			CanReopen: !inc.Open,
		},
		AcksLoading:   s.acksLoading,
		EventsLoading: s.eventsLoading,
		Notification:  s.notification,
	}
	v.Ticket.URL = inc.TicketURL

	if s.acksLoading {
		v.Acks = placeholderAckRows(now)
	} else {
		v.Acks = make([]models.AckRow, 0, len(s.acks))
		for _, a := range s.acks {
			v.Acks = append(v.Acks, ackRow(a, now))
		}
	}

	if s.eventsLoading {
		v.Events = placeholderEventRows()
	} else {
		v.Events = make([]models.EventRow, 0, len(s.events))
		for _, e := range s.events {
			if e.Type.Value == models.EventAck {
				continue
			}
			v.Events = append(v.Events, eventRow(e))
		}
	}
	return v
}

func tagViews(tags []models.IncidentTag) []models.TagView {
	out := make([]models.TagView, 0, len(tags))
	for _, raw := range tags {
		t := models.ParseTag(raw.Tag)
		tv := models.TagView{Key: t.Key, Value: t.Value, Label: t.String()}
		if utils.IsAbsoluteURL(t.Value) {
			tv.Href = t.Value
		}
		out = append(out, tv)
	}
	return out
}

func primaryDetails(inc models.Incident, now time.Time) models.PrimaryDetails {
	d := models.PrimaryDetails{
		Description: inc.Description,
		StartTime:   utils.FormatTimestamp(inc.StartTime),
		Source:      inc.Source.Name,
		DetailsURL:  detailsLink(inc.DetailsURL),
	}
	if inc.Stateful {
		d.Duration = utils.FormatDuration(inc.StartTime, inc.EndTime.Ptr(), now)
	}
	return d
}

func detailsLink(url string) models.Link {
	switch {
	case url == "":
		return models.Link{Text: emptyDetailText}
	case utils.IsAbsoluteURL(url):
		return models.Link{Text: moreDetailsText, Href: url}
	default:
		return models.Link{Text: url}
	}
}

func ackRow(a models.Acknowledgement, now time.Time) models.AckRow {
	row := models.AckRow{
		PK:        a.PK,
		Username:  a.Event.Actor.Username,
		Timestamp: utils.FormatTimestamp(a.Event.Timestamp),
		Message:   a.Event.Description,
	}
	if a.Expiration.Valid {
		ts := utils.FormatTimestamp(a.Expiration.Time)
		if a.Expiration.Time.Before(now) {
			row.Expired = true
			row.ExpiresMessage = "Expired " + ts
		} else {
			row.ExpiresMessage = "Expires " + ts
		}
	}
	return row
}

func eventRow(e models.Event) models.EventRow {
	return models.EventRow{
		PK:          e.PK,
		Username:    e.Actor.Username,
		Timestamp:   utils.FormatTimestamp(e.Timestamp),
		Type:        e.Type.Display,
		Description: e.Description,
	}
}

func placeholderAckRows(now time.Time) []models.AckRow {
	rows := make([]models.AckRow, placeholderRows)
	for i := range rows {
		rows[i] = ackRow(placeholderAck, now)
		rows[i].Placeholder = true
	}
	return rows
}

func placeholderEventRows() []models.EventRow {
	rows := make([]models.EventRow, placeholderRows)
	for i := range rows {
		rows[i] = eventRow(placeholderEvent)
		rows[i].Placeholder = true
	}
	return rows
}
