package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	require.NotNil(t, m)

	m.HTTPRequestsTotal.WithLabelValues("GET", "/api", "200").Inc()
	m.GenerationsTotal.WithLabelValues("success").Inc()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sitecast_http_requests_total"])
	assert.True(t, names["sitecast_generations_total"])
}

func TestObserveGeneration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveGeneration(50*time.Millisecond, 2, nil)
	m.ObserveGeneration(0, 0, assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationAnomalies))
}

func TestObserveStoreOperation(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveStoreOperation("get_project", time.Millisecond, nil)
	m.ObserveStoreOperation("get_project", time.Millisecond, assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("get_project", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("get_project", "error")))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects/ada/content", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/projects", "404")))
}

func TestRouteLabelBoundsCardinality(t *testing.T) {
	assert.Equal(t, "/", routeLabel("/"))
	assert.Equal(t, "/api", routeLabel("/api"))
	assert.Equal(t, "/api/projects", routeLabel("/api/projects"))
	assert.Equal(t, "/api/projects", routeLabel("/api/projects/ada"))
	assert.Equal(t, "/api/projects", routeLabel("/api/projects/ada/content"))
	assert.Equal(t, "/sites/ada", routeLabel("/sites/ada/index.html"))
}

func TestHandlerServesScrape(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	m.GenerationsTotal.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitecast_generations_total")
}
