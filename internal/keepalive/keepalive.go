// Package keepalive pings the service's own public endpoints on a
// schedule so free-tier hosting platforms do not idle the instance out.
package keepalive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/metrics"
)

// Pinger periodically requests the configured endpoints.
type Pinger struct {
	cfg     config.KeepAliveConfig
	client  *http.Client
	logger  logging.Logger
	metrics *metrics.Metrics
	cron    *cron.Cron
}

// New builds a Pinger from config; metrics may be nil.
func New(cfg config.KeepAliveConfig, logger logging.Logger, m *metrics.Metrics) *Pinger {
	return &Pinger{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.WithComponent("keepalive"),
		metrics: m,
	}
}

// Start schedules pings at the configured interval. No-op when
// disabled. Stop must be called on shutdown.
func (p *Pinger) Start(ctx context.Context) error {
	if !p.cfg.Enabled {
		return nil
	}

	p.cron = cron.New()
	spec := fmt.Sprintf("@every %s", p.cfg.Interval)
	if _, err := p.cron.AddFunc(spec, func() { p.pingAll(ctx) }); err != nil {
		return fmt.Errorf("scheduling keep-alive: %w", err)
	}
	p.cron.Start()

	p.logger.Info(ctx, "keep-alive scheduled",
		"url", p.cfg.URL,
		"interval", p.cfg.Interval.String(),
		"endpoints", strings.Join(p.cfg.Endpoints, ","),
	)
	return nil
}

// Stop halts the schedule and waits for an in-flight run.
func (p *Pinger) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

func (p *Pinger) pingAll(ctx context.Context) {
	base := strings.TrimRight(p.cfg.URL, "/")
	for _, endpoint := range p.cfg.Endpoints {
		p.ping(ctx, base, endpoint)
	}
}

func (p *Pinger) ping(ctx context.Context, base, endpoint string) {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	url := base + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Warn(ctx, err, "building keep-alive request", "url", url)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.observe(endpoint, "error")
		p.logger.Warn(ctx, err, "keep-alive ping failed", "url", url)
		return
	}
	resp.Body.Close()

	status := "ok"
	if resp.StatusCode >= http.StatusBadRequest {
		status = "error"
	}
	p.observe(endpoint, status)
	p.logger.Debug(ctx, "keep-alive ping", "url", url, "status", resp.StatusCode)
}

func (p *Pinger) observe(endpoint, status string) {
	if p.metrics != nil {
		p.metrics.KeepAlivePingsTotal.WithLabelValues(endpoint, status).Inc()
	}
}
