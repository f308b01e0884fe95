package keepalive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/metrics"
)

func TestPingAllHitsEveryEndpoint(t *testing.T) {
	var mu sync.Mutex
	hits := make(map[string]int)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := New(config.KeepAliveConfig{
		Enabled:   true,
		URL:       ts.URL,
		Endpoints: []string{"/", "/api/projects"},
		Interval:  14 * time.Minute,
	}, logging.NopLogger{}, nil)

	p.pingAll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits["/"])
	assert.Equal(t, 1, hits["/api/projects"])
}

func TestPingToleratesFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := New(config.KeepAliveConfig{
		Enabled:   true,
		URL:       ts.URL,
		Endpoints: []string{"/", "/down"},
		Interval:  14 * time.Minute,
	}, logging.NopLogger{}, nil)

	// Must not panic or abort on HTTP errors.
	p.pingAll(context.Background())
}

func TestPingObservesMetrics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	m := metrics.New(prometheus.NewRegistry())
	p := New(config.KeepAliveConfig{
		Enabled:   true,
		URL:       ts.URL,
		Endpoints: []string{"/", "/down"},
		Interval:  14 * time.Minute,
	}, logging.NopLogger{}, m)

	p.pingAll(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.KeepAlivePingsTotal.WithLabelValues("/", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KeepAlivePingsTotal.WithLabelValues("/down", "error")))
}

func TestStartDisabledIsNoop(t *testing.T) {
	p := New(config.KeepAliveConfig{Enabled: false}, logging.NopLogger{}, nil)
	require.NoError(t, p.Start(context.Background()))
	p.Stop()
}

func TestStartSchedulesAndStops(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := New(config.KeepAliveConfig{
		Enabled:   true,
		URL:       ts.URL,
		Endpoints: []string{"/"},
		Interval:  time.Minute,
	}, logging.NopLogger{}, nil)

	require.NoError(t, p.Start(context.Background()))
	p.Stop()
}
