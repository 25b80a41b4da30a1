package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestUpstreamTracer_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	var tr UpstreamTracer
	_, span := tr.StartUpstreamSpan(context.Background(), "get_incident_acks", "GET", "/api/v1/incidents/1/acks/")
	RecordStatus(span, 502)
	span.End()

	_, span = tr.StartViewSpan(context.Background(), "incident", "close")
	RecordError(span, errors.New("boom"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "upstream.get_incident_acks", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "incident.close", ended[1].Name())
	assert.Len(t, ended[1].Events(), 1)
}
