// Package monitoring exposes the Prometheus metrics of alertdesk.
//
// Available metrics:
//
// HTTP:
//   - alertdesk_http_requests_total{method, endpoint, status_code}
//   - alertdesk_http_request_duration_seconds{method, endpoint}
//
// Upstream incident API:
//   - alertdesk_upstream_requests_total{operation, status}
//   - alertdesk_upstream_request_duration_seconds{operation}
//
// Presenters:
//   - alertdesk_view_operations_total{view, operation, result}
//   - alertdesk_mounted_views{view}
//
// Cache:
//   - alertdesk_cache_operations_total{operation, result}
//
// Errors:
//   - alertdesk_errors_total{type, component}
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertdesk_upstream_requests_total",
			Help: "Total number of calls to the upstream incident API",
		},
		[]string{"operation", "status"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertdesk_upstream_request_duration_seconds",
			Help:    "Upstream incident API call duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	viewOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertdesk_view_operations_total",
			Help: "Total number of presenter operations",
		},
		[]string{"view", "operation", "result"}, // result: success, or the error kind
	)

	mountedViews = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alertdesk_mounted_views",
			Help: "Number of currently mounted views",
		},
		[]string{"view"},
	)

	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertdesk_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, success, error
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertdesk_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// SetupPrometheusMetrics registers the collectors with the default registry
// and mounts /metrics. Registering twice is harmless.
func SetupPrometheusMetrics(router gin.IRoutes, version string) {
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "alertdesk_build_info",
		Help: "Build information for alertdesk",
		ConstLabels: prometheus.Labels{
			"version":   version,
			"component": "alertdesk",
		},
	}, func() float64 { return 1 }))

	for _, c := range []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		upstreamRequestsTotal,
		upstreamRequestDuration,
		viewOperationsTotal,
		mountedViews,
		cacheOperationsTotal,
		errorsTotal,
	} {
		_ = prometheus.Register(c)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RecordHTTPRequest is called by the metrics middleware. endpoint is the gin
// route template so view ids and pks do not explode cardinality.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	if status >= 500 {
		errorsTotal.WithLabelValues("http", endpoint).Inc()
	}
}

// RecordUpstreamCall records one upstream incident API call. status is the
// HTTP status, or 0 for a transport failure.
func RecordUpstreamCall(operation string, status int, duration time.Duration) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "transport_error"
	}
	upstreamRequestsTotal.WithLabelValues(operation, label).Inc()
	upstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if status == 0 || status >= 400 {
		errorsTotal.WithLabelValues("upstream", operation).Inc()
	}
}

// RecordViewOperation records a presenter operation outcome.
func RecordViewOperation(view, operation, result string) {
	viewOperationsTotal.WithLabelValues(view, operation, result).Inc()
}

func ViewMounted(view string)   { mountedViews.WithLabelValues(view).Inc() }
func ViewUnmounted(view string) { mountedViews.WithLabelValues(view).Dec() }

// RecordCacheOperation records cache operation metrics
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}
