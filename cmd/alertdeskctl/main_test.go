package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/alertdesk/internal/models"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}
	}

	mux.HandleFunc("GET /api/v1/incidents/42/", reply(http.StatusOK, `{"pk":42,"start_time":"2024-03-01T10:00:00Z",
		"end_time":null,"stateful":true,"source":{"pk":1,"name":"argus"},"description":"disk full",
		"details_url":"","ticket_url":"","open":true,"acked":false,"tags":[]}`))
	mux.HandleFunc("GET /api/v1/incidents/42/acks/", reply(http.StatusOK, `[]`))
	mux.HandleFunc("GET /api/v1/incidents/42/events/", reply(http.StatusOK, `[]`))
	mux.HandleFunc("POST /api/v1/incidents/42/events/", reply(http.StatusCreated, `{"pk":5,"incident":42,
		"actor":{"pk":1,"username":"alice"},"timestamp":"2024-03-01T11:00:00Z",
		"type":{"value":"CLO","display":"Close"},"description":"fixed"}`))
	mux.HandleFunc("GET /api/v1/alerts/metadata/", reply(http.StatusOK, `{"alertSources":[{"pk":1,"name":"argus"}],
		"objectTypes":[],"parentObjects":[],"problemTypes":[{"pk":30,"name":"disk"}]}`))
	mux.HandleFunc("GET /api/v1/notificationprofiles/filters/", reply(http.StatusOK,
		`[{"pk":1,"name":"disks","filter_string":"{\"sourceIds\":[\"1\"],\"objectTypeIds\":[],\"parentObjectIds\":[],\"problemTypeIds\":[\"30\"]}"}]`))
	mux.HandleFunc("POST /api/v1/notificationprofiles/filters/", reply(http.StatusBadRequest,
		`{"name":["filter with this name already exists."]}`))
	mux.HandleFunc("POST /api/v1/notificationprofiles/filterpreview/", reply(http.StatusOK,
		`[{"pk":7,"timestamp":"2024-03-01T10:00:00Z","description":"disk at 99%"}]`))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIncidentShow_JSON(t *testing.T) {
	srv := upstream(t)
	out, err := run(t, "--upstream", srv.URL, "--token", "t", "-o", "json", "incident", "show", "42")
	require.NoError(t, err)

	var view models.IncidentView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, models.PK("42"), view.IncidentPK)
	assert.True(t, view.Status.Open)
	assert.False(t, view.AcksLoading)
	assert.False(t, view.EventsLoading)
}

func TestIncidentClose(t *testing.T) {
	srv := upstream(t)
	out, err := run(t, "--upstream", srv.URL, "incident", "close", "42", "--reason", "fixed")
	require.NoError(t, err)
	assert.Contains(t, out, "CLOSED")
	assert.Contains(t, out, "Closed incident 42")
}

func TestIncidentCommands_Validation(t *testing.T) {
	srv := upstream(t)

	_, err := run(t, "--upstream", srv.URL, "incident", "ack", "42")
	assert.Error(t, err, "--message is required")

	_, err = run(t, "--upstream", srv.URL, "incident", "ack", "42", "--message", "on it", "--expires", "tomorrow")
	assert.Error(t, err)

	out, err := run(t, "--upstream", srv.URL, "incident", "ticket", "42", "not a url")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, out, "Incident 42")

	_, err = run(t, "--upstream", "argus.local", "incident", "show", "42")
	assert.Error(t, err)

	_, err = run(t, "--upstream", srv.URL, "-o", "xml", "incident", "show", "42")
	assert.Error(t, err)
}

func TestFilters(t *testing.T) {
	srv := upstream(t)

	out, err := run(t, "--upstream", srv.URL, "filters", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "disks")
	assert.Contains(t, out, "argus")

	out, err = run(t, "--upstream", srv.URL, "filters", "create", "--name", "disks", "--source", "1")
	assert.Error(t, err)
	assert.Contains(t, out, "Unable to create filter: disks. Try using a different name")

	out, err = run(t, "--upstream", srv.URL, "filters", "delete", "99")
	assert.Error(t, err)
	assert.Contains(t, out, "Unable to delete filter: 99!")

	out, err = run(t, "--upstream", srv.URL, "filters", "preview", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "disk at 99%")
}

func TestParseExpiration(t *testing.T) {
	got, err := parseExpiration("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseExpiration("2030-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 2, 0, 0, 0, 0, time.Local), *got)

	got, err = parseExpiration("2030-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)))

	_, err = parseExpiration("soon")
	assert.Error(t, err)
}
