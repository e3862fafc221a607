package registry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/openagora/agora/pkg/models"
)

// runHealthChecks probes one agent's health endpoint on a ticker until the
// agent is unregistered or the registry stops.
func (r *Registry) runHealthChecks(entry *agentEntry, interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-entry.stopHealth:
			return
		case <-ticker.C:
			r.checkHealth(entry)
		}
	}
}

// checkHealth performs one probe and classifies the result:
//
//	2xx within the latency threshold  -> healthy (recovers a broken circuit)
//	2xx over the threshold            -> degraded
//	anything else or a network error  -> unhealthy
//
// A check result only moves health and last-checked; request counters belong
// to real traffic.
func (r *Registry) checkHealth(entry *agentEntry) {
	cfg := entry.config

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	start := r.now()
	status, err := r.probe(ctx, joinURL(cfg.BaseURL, cfg.Endpoints.Health))
	latency := r.now().Sub(start)
	checked := r.now()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	previous := entry.health
	entry.lastChecked = &checked

	switch {
	case err != nil:
		entry.health = models.HealthUnhealthy
	case status >= 200 && status < 300 && latency <= r.config.HealthLatencyThreshold:
		entry.health = models.HealthHealthy
		r.resetCircuitLocked(entry)
	case status >= 200 && status < 300:
		entry.health = models.HealthDegraded
	default:
		entry.health = models.HealthUnhealthy
	}

	if entry.health != previous {
		slog.Info("External agent health changed",
			"agent_id", cfg.ID,
			"from", previous,
			"to", entry.health,
			"latency_ms", latency.Milliseconds())
	}
}

// probe GETs the URL and returns the status code.
func (r *Registry) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}
