package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PK is an upstream primary key. The incident API emits integer keys for most
// entities and string keys for some metadata, so both decode into the same type.
type PK string

func (p *PK) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PK(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("primary key must be a string or number: %w", err)
	}
	*p = PK(n.String())
	return nil
}

func (p PK) String() string { return string(p) }

// EventKind is the short code the upstream uses for event types.
type EventKind string

const (
	EventIncidentStart EventKind = "STA"
	EventIncidentEnd   EventKind = "END"
	EventClose         EventKind = "CLO"
	EventReopen        EventKind = "REO"
	EventAck           EventKind = "ACK"
	EventOther         EventKind = "OTH"
)

type EventType struct {
	Value   EventKind `json:"value"`
	Display string    `json:"display"`
}

type Actor struct {
	PK       PK     `json:"pk"`
	Username string `json:"username"`
}

// NamedRef is the {pk, name} shape the upstream nests for sources, objects
// and problem types.
type NamedRef struct {
	PK   PK     `json:"pk"`
	Name string `json:"name"`
}

type IncidentTag struct {
	Tag string `json:"tag"`
}

// Incident mirrors the upstream incident. Its lifecycle is owned by the
// backend; the dashboard only patches local copies after successful calls.
type Incident struct {
	PK          PK            `json:"pk"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     OptionalTime  `json:"end_time"`
	Stateful    bool          `json:"stateful"`
	Source      NamedRef      `json:"source"`
	Description string        `json:"description"`
	DetailsURL  string        `json:"details_url"`
	TicketURL   string        `json:"ticket_url"`
	Open        bool          `json:"open"`
	Acked       bool          `json:"acked"`
	Tags        []IncidentTag `json:"tags"`
}

// Event is immutable once created and append-only per incident.
type Event struct {
	PK          PK        `json:"pk"`
	Incident    PK        `json:"incident"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	Description string    `json:"description"`
}

type Acknowledgement struct {
	PK         PK           `json:"pk"`
	Event      Event        `json:"event"`
	Expiration OptionalTime `json:"expiration"`
}

type AckEventBody struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// AcknowledgementBody is posted to create an acknowledgement. A nil
// Expiration is sent as null.
type AcknowledgementBody struct {
	Event      AckEventBody `json:"event"`
	Expiration *time.Time   `json:"expiration"`
}

// IncidentEventBody is posted to append a close/reopen event.
type IncidentEventBody struct {
	Type        EventKind `json:"type"`
	Description string    `json:"description,omitempty"`
}

// IncidentTicketURLBody carries the ticket URL. A nil TicketURL is omitted
// from the body so clearing never sends an empty string.
type IncidentTicketURLBody struct {
	TicketURL *string `json:"ticket_url,omitempty"`
}

// Tag is derived from an incident's raw "key=value" string.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParseTag splits on the first '='. A string without '=' yields an empty value.
func ParseTag(raw string) Tag {
	key, value, _ := strings.Cut(raw, "=")
	return Tag{Key: key, Value: value}
}

func (t Tag) String() string { return t.Key + "=" + t.Value }
