// Package metrics holds the Prometheus instrumentation for the content
// API and the site generation pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Generation metrics
	GenerationsTotal       *prometheus.CounterVec
	GenerationDuration     prometheus.Histogram
	GenerationAnomalies    prometheus.Counter
	KeepAlivePingsTotal    *prometheus.CounterVec
	ReloadClientsConnected prometheus.Gauge
}

// New creates and registers all Prometheus metrics on the registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecast_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitecast_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecast_store_operations_total",
				Help: "Total number of document store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitecast_store_operation_duration_seconds",
				Help:    "Document store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecast_generations_total",
				Help: "Total number of site generations",
			},
			[]string{"status"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitecast_generation_duration_seconds",
				Help:    "Site generation duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		GenerationAnomalies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitecast_generation_anomalies_total",
				Help: "Content keys with no matching template target",
			},
		),
		KeepAlivePingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecast_keepalive_pings_total",
				Help: "Total number of keep-alive pings",
			},
			[]string{"endpoint", "status"},
		),
		ReloadClientsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitecast_reload_clients_connected",
				Help: "Live-reload websocket clients currently connected",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.GenerationsTotal,
		m.GenerationDuration,
		m.GenerationAnomalies,
		m.KeepAlivePingsTotal,
		m.ReloadClientsConnected,
	)

	return m
}

// ObserveGeneration records one generation outcome.
func (m *Metrics) ObserveGeneration(duration time.Duration, anomalies int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.GenerationsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.GenerationDuration.Observe(duration.Seconds())
		m.GenerationAnomalies.Add(float64(anomalies))
	}
}

// ObserveStoreOperation records one store call.
func (m *Metrics) ObserveStoreOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP requests. The route label uses the
// request path's first two segments to keep cardinality bounded across
// arbitrary project ids.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r.URL.Path)
			status := strconv.Itoa(rw.statusCode)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeLabel(path string) string {
	segments := 0
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			segments++
			if segments == 2 {
				return path[:i]
			}
		}
	}
	return path
}

// Handler returns the scrape endpoint handler for the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
