package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testIncident() models.Incident {
	return models.Incident{
		PK:          "42",
		StartTime:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Stateful:    true,
		Source:      models.NamedRef{PK: "1", Name: "argus"},
		Description: "disk full",
		DetailsURL:  "https://example.com/details",
		Open:        true,
		Tags: []models.IncidentTag{
			{Tag: "runbook=https://example.com/rb"},
			{Tag: "env=prod"},
			{Tag: "query=a=b"},
		},
	}
}

func ackAt(pk string, ts time.Time, exp *time.Time) models.Acknowledgement {
	a := models.Acknowledgement{
		PK: models.PK(pk),
		Event: models.Event{
			PK:          models.PK("e" + pk),
			Actor:       models.Actor{Username: "bob"},
			Timestamp:   ts,
			Type:        models.EventType{Value: models.EventAck, Display: "Acknowledged"},
			Description: "looking",
		},
	}
	if exp != nil {
		a.Expiration = models.SomeTime(*exp)
	}
	return a
}

func newTestIncidentView(api *fakeAPI) *IncidentDetailsService {
	s := NewIncidentDetailsService(context.Background(), "view-1", api, testIncident(), logger.NewNop())
	s.now = func() time.Time { return testNow }
	return s
}

func TestIncidentDetails_PlaceholdersWhileLoading(t *testing.T) {
	s := newTestIncidentView(&fakeAPI{})
	v := s.Snapshot()

	assert.True(t, v.AcksLoading)
	assert.True(t, v.EventsLoading)
	require.Len(t, v.Acks, 3)
	require.Len(t, v.Events, 3)
	for _, row := range v.Events {
		assert.True(t, row.Placeholder)
		assert.Equal(t, "test", row.Username)
		assert.Equal(t, "Incident start", row.Type)
		assert.Equal(t, "2011-11-11 11:11:11", row.Timestamp)
	}
	for _, row := range v.Acks {
		assert.True(t, row.Placeholder)
		assert.Equal(t, "Expired 2020-02-14 03:04:14", row.ExpiresMessage)
	}
}

func TestIncidentDetails_Load(t *testing.T) {
	later := testNow.Add(time.Hour)
	earlier := testNow.Add(-time.Hour)
	api := &fakeAPI{
		acks: []models.Acknowledgement{
			ackAt("1", testNow.Add(-2*time.Hour), nil),
			ackAt("2", testNow.Add(-time.Hour), &earlier),
			ackAt("3", testNow.Add(-time.Hour), &later),
		},
		events: []models.Event{
			{PK: "1", Type: models.EventType{Value: models.EventIncidentStart, Display: "Incident start"}},
			{PK: "2", Type: models.EventType{Value: models.EventAck, Display: "Acknowledged"}},
			{PK: "3", Type: models.EventType{Value: models.EventOther, Display: "Other"}},
		},
	}
	s := newTestIncidentView(api)
	require.NoError(t, s.Load(context.Background()))

	v := s.Snapshot()
	assert.False(t, v.AcksLoading)
	assert.False(t, v.EventsLoading)

	require.Len(t, v.Acks, 3)
	assert.Equal(t, []models.PK{"3", "2", "1"}, []models.PK{v.Acks[0].PK, v.Acks[1].PK, v.Acks[2].PK})
	assert.Equal(t, "Expires 2024-03-01 13:00:00", v.Acks[0].ExpiresMessage)
	assert.False(t, v.Acks[0].Expired)
	assert.Equal(t, "Expired 2024-03-01 11:00:00", v.Acks[1].ExpiresMessage)
	assert.True(t, v.Acks[1].Expired)
	assert.Empty(t, v.Acks[2].ExpiresMessage)

	require.Len(t, v.Events, 2)
	assert.Equal(t, models.PK("1"), v.Events[0].PK)
	assert.Equal(t, models.PK("3"), v.Events[1].PK)
	assert.Nil(t, v.Notification)
}

func TestIncidentDetails_LoadFailureLeavesEmptyList(t *testing.T) {
	api := &fakeAPI{
		acks:      []models.Acknowledgement{ackAt("1", testNow, nil)},
		eventsErr: errUpstream,
	}
	s := newTestIncidentView(api)

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "network_error", models.ErrorKind(err))

	v := s.Snapshot()
	assert.False(t, v.EventsLoading)
	assert.Empty(t, v.Events)
	assert.Len(t, v.Acks, 1)
	require.NotNil(t, v.Notification)
	assert.Equal(t, models.SeverityError, v.Notification.Severity)
	assert.Contains(t, v.Notification.Message, "Failed to fetch events for incident 42")
}

func TestIncidentDetails_CloseThenReopen(t *testing.T) {
	api := &fakeAPI{}
	s := newTestIncidentView(api)
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.ManualClose(context.Background(), "fixed upstream"))
	v := s.Snapshot()
	assert.False(t, v.Status.Open)
	assert.True(t, v.Actions.CanReopen)
	assert.Equal(t, "Closed incident 42", v.Notification.Message)
	assert.Equal(t, models.SeveritySuccess, v.Notification.Severity)
	require.Len(t, v.Events, 1)
	assert.Equal(t, "fixed upstream", v.Events[0].Description)

	require.NoError(t, s.ManualOpen(context.Background()))
	v = s.Snapshot()
	assert.True(t, v.Status.Open)
	assert.Equal(t, "Reopened incident 42", v.Notification.Message)
	assert.Len(t, v.Events, 2)
}

func TestIncidentDetails_CloseValidation(t *testing.T) {
	api := &fakeAPI{}
	s := newTestIncidentView(api)

	err := s.ManualClose(context.Background(), "   ")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "reason", ve.Field)
	assert.Zero(t, api.callCount("PostIncidentCloseEvent"))

	err = s.ManualOpen(context.Background())
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, api.callCount("PostIncidentReopenEvent"))
}

func TestIncidentDetails_CloseFailureKeepsState(t *testing.T) {
	api := &fakeAPI{closeErr: errUpstream}
	s := newTestIncidentView(api)

	err := s.ManualClose(context.Background(), "done")
	require.ErrorIs(t, err, errUpstream)

	v := s.Snapshot()
	assert.True(t, v.Status.Open)
	assert.Equal(t, "Failed to close incident 42 - "+errUpstream.Error(), v.Notification.Message)
	assert.Equal(t, models.SeverityError, v.Notification.Severity)
}

func TestIncidentDetails_SubmitAcknowledgement(t *testing.T) {
	api := &fakeAPI{acks: []models.Acknowledgement{ackAt("1", testNow.Add(-time.Hour), nil)}}
	s := newTestIncidentView(api)
	require.NoError(t, s.Load(context.Background()))

	exp := testNow.Add(24 * time.Hour)
	require.NoError(t, s.SubmitAcknowledgement(context.Background(), "on it", &exp))

	require.Len(t, api.ackBodies, 1)
	assert.Equal(t, testNow, api.ackBodies[0].Event.Timestamp)
	assert.Equal(t, "on it", api.ackBodies[0].Event.Description)
	assert.Equal(t, &exp, api.ackBodies[0].Expiration)

	v := s.Snapshot()
	assert.True(t, v.Status.Acked)
	assert.Equal(t, "Submitted Acknowledged for 42", v.Notification.Message)
	require.Len(t, v.Acks, 2)
	assert.Equal(t, models.PK("200"), v.Acks[0].PK)

	// only the acked flag is patched
	assert.True(t, v.Status.Open)
}

func TestIncidentDetails_AcknowledgementDuringLoad(t *testing.T) {
	cases := []struct {
		name    string
		fetched []models.Acknowledgement
	}{
		{name: "missing from fetched list", fetched: []models.Acknowledgement{ackAt("1", testNow.Add(-time.Hour), nil)}},
		{name: "already in fetched list", fetched: []models.Acknowledgement{ackAt("1", testNow.Add(-time.Hour), nil), ackAt("200", testNow, nil)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{acks: tc.fetched, blockAcks: make(chan struct{})}
			s := newTestIncidentView(api)

			done := make(chan error, 1)
			go func() { done <- s.Load(context.Background()) }()
			require.Eventually(t, func() bool {
				return api.callCount("GetIncidentAcks") == 1
			}, time.Second, 5*time.Millisecond)

			require.NoError(t, s.SubmitAcknowledgement(context.Background(), "on it", nil))
			v := s.Snapshot()
			assert.True(t, v.Status.Acked)
			assert.True(t, v.AcksLoading)

			close(api.blockAcks)
			require.NoError(t, <-done)

			v = s.Snapshot()
			assert.False(t, v.AcksLoading)
			require.Len(t, v.Acks, 2)
			assert.Equal(t, models.PK("200"), v.Acks[0].PK)
			assert.Equal(t, models.PK("1"), v.Acks[1].PK)
		})
	}
}

func TestIncidentDetails_SubmitAcknowledgementFailure(t *testing.T) {
	api := &fakeAPI{ackErr: errUpstream}
	s := newTestIncidentView(api)

	require.Error(t, s.SubmitAcknowledgement(context.Background(), "on it", nil))
	v := s.Snapshot()
	assert.False(t, v.Status.Acked)
	assert.Equal(t, "Failed to post ack "+errUpstream.Error(), v.Notification.Message)

	var ve *models.ValidationError
	assert.ErrorAs(t, s.SubmitAcknowledgement(context.Background(), "", nil), &ve)
}

func TestIncidentDetails_Tags(t *testing.T) {
	v := newTestIncidentView(&fakeAPI{}).Snapshot()

	require.Len(t, v.Tags, 3)
	assert.Equal(t, models.TagView{Key: "runbook", Value: "https://example.com/rb", Label: "runbook=https://example.com/rb", Href: "https://example.com/rb"}, v.Tags[0])
	assert.Equal(t, models.TagView{Key: "env", Value: "prod", Label: "env=prod"}, v.Tags[1])
	assert.Equal(t, "a=b", v.Tags[2].Value)
}

func TestIncidentDetails_PrimaryDetails(t *testing.T) {
	v := newTestIncidentView(&fakeAPI{}).Snapshot()

	assert.Equal(t, "disk full", v.Details.Description)
	assert.Equal(t, "2024-03-01 10:00:00", v.Details.StartTime)
	assert.Equal(t, "2h 0m 0s", v.Details.Duration)
	assert.Equal(t, "argus", v.Details.Source)
	assert.Equal(t, models.Link{Text: "More details", Href: "https://example.com/details"}, v.Details.DetailsURL)

	assert.Equal(t, models.Link{Text: "–"}, detailsLink(""))
	assert.Equal(t, models.Link{Text: "see wiki"}, detailsLink("see wiki"))

	inc := testIncident()
	inc.Stateful = false
	assert.Empty(t, primaryDetails(inc, testNow).Duration)
}

func TestIncidentDetails_TicketEditing(t *testing.T) {
	t.Run("invalid draft blocks save", func(t *testing.T) {
		api := &fakeAPI{}
		s := newTestIncidentView(api)
		require.NoError(t, s.BeginTicketEdit())
		require.NoError(t, s.SetTicketDraft("not a url"))
		assert.Equal(t, "Invalid URL", s.Snapshot().Ticket.Error)

		var ve *models.ValidationError
		require.ErrorAs(t, s.SaveTicket(context.Background()), &ve)
		assert.Zero(t, api.callCount("PatchIncidentTicketURL"))
		assert.True(t, s.Snapshot().Ticket.Editing)
	})

	t.Run("valid draft is saved", func(t *testing.T) {
		api := &fakeAPI{}
		s := newTestIncidentView(api)
		require.NoError(t, s.BeginTicketEdit())
		require.NoError(t, s.SetTicketDraft("https://tickets.example.com/1"))
		assert.Empty(t, s.Snapshot().Ticket.Error)

		require.NoError(t, s.SaveTicket(context.Background()))
		require.Len(t, api.ticketBodies, 1)
		require.NotNil(t, api.ticketBodies[0])
		assert.Equal(t, "https://tickets.example.com/1", *api.ticketBodies[0])

		v := s.Snapshot()
		assert.False(t, v.Ticket.Editing)
		assert.Equal(t, "https://tickets.example.com/1", v.Ticket.URL)
		assert.Equal(t, "https://tickets.example.com/1", v.Status.TicketURL)
		assert.Equal(t, "Updated ticket URL for 42", v.Notification.Message)
	})

	t.Run("empty draft clears without a field", func(t *testing.T) {
		api := &fakeAPI{}
		s := newTestIncidentView(api)
		s.incident.TicketURL = "https://tickets.example.com/1"
		require.NoError(t, s.BeginTicketEdit())
		assert.Equal(t, "https://tickets.example.com/1", s.Snapshot().Ticket.Draft)
		require.NoError(t, s.SetTicketDraft(""))

		require.NoError(t, s.SaveTicket(context.Background()))
		require.Len(t, api.ticketBodies, 1)
		assert.Nil(t, api.ticketBodies[0])
		assert.Empty(t, s.Snapshot().Status.TicketURL)
	})

	t.Run("save outside editing is a no-op", func(t *testing.T) {
		api := &fakeAPI{}
		s := newTestIncidentView(api)
		require.NoError(t, s.SaveTicket(context.Background()))
		assert.Zero(t, api.callCount("PatchIncidentTicketURL"))
	})

	t.Run("cancel restores display", func(t *testing.T) {
		s := newTestIncidentView(&fakeAPI{})
		require.NoError(t, s.BeginTicketEdit())
		require.NoError(t, s.SetTicketDraft("junk"))
		require.NoError(t, s.CancelTicketEdit())
		assert.Equal(t, models.TicketEditor{}, s.Snapshot().Ticket)
	})

	t.Run("failure notifies", func(t *testing.T) {
		api := &fakeAPI{ticketErr: errUpstream}
		s := newTestIncidentView(api)
		require.NoError(t, s.BeginTicketEdit())
		require.NoError(t, s.SetTicketDraft("https://tickets.example.com/2"))
		require.Error(t, s.SaveTicket(context.Background()))
		assert.Equal(t, "Failed to updated ticket URL "+errUpstream.Error(), s.Snapshot().Notification.Message)
	})
}

func TestIncidentDetails_SubscribeAndClose(t *testing.T) {
	api := &fakeAPI{}
	s := newTestIncidentView(api)
	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.ManualClose(context.Background(), "done"))
	select {
	case snap := <-ch:
		v, ok := snap.(models.IncidentView)
		require.True(t, ok)
		assert.False(t, v.Status.Open)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	s.Close()
	_, open := <-ch
	assert.False(t, open)

	err := s.ManualOpen(context.Background())
	assert.ErrorIs(t, err, ErrViewClosed)
	assert.False(t, s.Snapshot().Status.Open)
}

func TestIncidentDetails_CloseCancelsLoad(t *testing.T) {
	api := &fakeAPI{blockEvents: make(chan struct{})}
	s := newTestIncidentView(api)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	require.Eventually(t, func() bool { return api.callCount("GetIncidentEvents") == 1 }, time.Second, 5*time.Millisecond)

	s.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrViewClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not return after close")
	}
	assert.True(t, s.Snapshot().EventsLoading)
}
