package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/platformbuilds/alertdesk"

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTracerProvider creates an OTLP/gRPC exporting tracer provider and
// installs it globally.
func NewTracerProvider(ctx context.Context, serviceName, serviceVersion, otlpEndpoint string, sampleRatio float64) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("alertdesk"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// UpstreamTracer wraps calls to the incident API in client spans. It reads
// the global provider at span start, so it is a no-op until a provider is
// installed.
type UpstreamTracer struct{}

func (UpstreamTracer) tracer() trace.Tracer { return otel.Tracer(instrumentationName) }

// StartUpstreamSpan starts a client span for one upstream operation.
func (u UpstreamTracer) StartUpstreamSpan(ctx context.Context, operation, method, path string) (context.Context, trace.Span) {
	return u.tracer().Start(ctx, "upstream."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("component", "incident-api-client"),
		),
	)
}

// StartViewSpan starts an internal span for a presenter operation.
func (u UpstreamTracer) StartViewSpan(ctx context.Context, view, operation string) (context.Context, trace.Span) {
	return u.tracer().Start(ctx, view+"."+operation,
		trace.WithAttributes(attribute.String("component", "presenter")),
	)
}

// RecordStatus annotates the span with the response status.
func RecordStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
	}
}

// RecordError records an error on a span
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}
