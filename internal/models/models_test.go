package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPK_DecodesNumbersAndStrings(t *testing.T) {
	var v struct {
		A PK `json:"a"`
		B PK `json:"b"`
		C PK `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"src-1","c":null}`), &v))
	assert.Equal(t, PK("42"), v.A)
	assert.Equal(t, PK("src-1"), v.B)
	assert.Equal(t, PK(""), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestOptionalTime(t *testing.T) {
	var inc Incident
	require.NoError(t, json.Unmarshal([]byte(`{"pk":1,"start_time":"2024-01-01T00:00:00Z","end_time":"infinity"}`), &inc))
	assert.False(t, inc.EndTime.Valid)
	assert.Nil(t, inc.EndTime.Ptr())

	require.NoError(t, json.Unmarshal([]byte(`{"pk":1,"start_time":"2024-01-01T00:00:00Z","end_time":"2024-01-01T02:00:00.5+01:00"}`), &inc))
	require.True(t, inc.EndTime.Valid)
	assert.True(t, inc.EndTime.Equal(time.Date(2024, 1, 1, 1, 0, 0, 500_000_000, time.UTC)))

	var ack Acknowledgement
	require.NoError(t, json.Unmarshal([]byte(`{"pk":3,"event":{"pk":9},"expiration":null}`), &ack))
	assert.False(t, ack.Expiration.Valid)

	assert.Error(t, json.Unmarshal([]byte(`{"expiration":"tomorrow"}`), &ack))

	b, err := json.Marshal(OptionalTime{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestAcknowledgementBody_NullExpiration(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b, err := json.Marshal(AcknowledgementBody{Event: AckEventBody{Description: "on it", Timestamp: ts}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":{"description":"on it","timestamp":"2024-05-01T10:00:00Z"},"expiration":null}`, string(b))
}

func TestIncidentTicketURLBody_OmitsEmpty(t *testing.T) {
	b, err := json.Marshal(IncidentTicketURLBody{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	u := "https://tickets.example/1"
	b, err = json.Marshal(IncidentTicketURLBody{TicketURL: &u})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticket_url":"https://tickets.example/1"}`, string(b))
}

func TestParseTag(t *testing.T) {
	assert.Equal(t, Tag{Key: "env", Value: "prod"}, ParseTag("env=prod"))
	assert.Equal(t, Tag{Key: "url", Value: "https://x.org/?a=b"}, ParseTag("url=https://x.org/?a=b"))
	assert.Equal(t, Tag{Key: "bare"}, ParseTag("bare"))
	assert.Equal(t, "env=prod", ParseTag("env=prod").String())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "validation_error", ErrorKind(&ValidationError{Field: "reason", Message: "required"}))
	assert.Equal(t, "network_error", ErrorKind(fmt.Errorf("close: %w", &NetworkError{Op: "post_event", Status: 500, Err: errors.New("boom")})))
	assert.Equal(t, "lookup_error", ErrorKind(&LookupError{Dimension: "sourceIds", ID: "1"}))
	assert.Equal(t, "deserialization_error", ErrorKind(&DeserializationError{Input: "x", Err: errors.New("bad")}))
	assert.Equal(t, "internal_error", ErrorKind(errors.New("other")))

	ne := &NetworkError{Op: "get_acks", Err: errors.New("refused")}
	assert.Equal(t, "get_acks: refused", ne.Error())
	assert.Contains(t, (&NetworkError{Op: "x", Status: 404, Err: errors.New("nf")}).Error(), "status 404")
}
