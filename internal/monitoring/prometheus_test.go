package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupPrometheusMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupPrometheusMetrics(r, "test")
	RecordViewOperation("incident", "close", "success")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alertdesk_view_operations_total")
}

func TestRecordUpstreamCall_TransportFailure(t *testing.T) {
	before := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("get_incident_acks", "transport_error"))
	RecordUpstreamCall("get_incident_acks", 0, 10*time.Millisecond)
	after := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("get_incident_acks", "transport_error"))
	assert.Equal(t, before+1, after)
}

func TestMountedViewsGauge(t *testing.T) {
	before := testutil.ToFloat64(mountedViews.WithLabelValues("filters"))
	ViewMounted("filters")
	ViewMounted("filters")
	ViewUnmounted("filters")
	assert.Equal(t, before+1, testutil.ToFloat64(mountedViews.WithLabelValues("filters")))
}

func TestRecordHTTPRequest_UnmatchedRoute(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")), 1.0)
}
