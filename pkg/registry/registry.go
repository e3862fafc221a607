// Package registry tracks external agents: their immutable registration
// config and their mutable runtime state (health, circuit breaker, in-flight
// counters). The registry is the only writer of runtime state; the proxy
// reports call outcomes back through RecordSuccess/RecordFailure.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"

	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/services"
)

// Registry holds all registered external agents.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*agentEntry

	config     *config.ProxyConfig
	httpClient *http.Client

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	now func() time.Time // stubbed in tests
}

// agentEntry pairs an agent's immutable config with its runtime state.
// Runtime fields are guarded by mu; config and card are written once at
// registration.
type agentEntry struct {
	config models.ExternalAgentConfig
	card   *models.CapabilityCard

	mu             sync.Mutex
	enabled        bool
	health         string
	lastChecked    *time.Time
	activeRequests int
	totalRequests  int64
	totalErrors    int64
	avgResponseMs  float64
	circuitBroken  bool
	circuitResetAt *time.Time

	stopHealth chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.ProxyConfig) *Registry {
	if cfg == nil {
		panic("registry requires proxy configuration")
	}
	return &Registry{
		agents: make(map[string]*agentEntry),
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.ConnectTimeout,
		},
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Register adds an external agent. The supplied config is merged over the
// registry defaults, a capability card is fetched best-effort from the info
// endpoint, and a health ticker starts when the check interval is positive.
func (r *Registry) Register(ctx context.Context, cfg models.ExternalAgentConfig) (*models.AgentSnapshot, error) {
	if cfg.ID == "" {
		return nil, services.NewValidationError("id", "agent id is required")
	}
	if cfg.BaseURL == "" {
		return nil, services.NewValidationError("base_url", "base URL is required")
	}
	if err := mergo.Merge(&cfg, r.defaultAgentConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge agent defaults: %w", err)
	}
	if err := validateAgentConfig(&cfg); err != nil {
		return nil, err
	}

	entry := &agentEntry{
		config:     cfg,
		enabled:    cfg.Enabled == nil || *cfg.Enabled,
		health:     models.HealthUnknown,
		stopHealth: make(chan struct{}),
	}

	r.mu.Lock()
	if _, exists := r.agents[cfg.ID]; exists {
		r.mu.Unlock()
		return nil, services.ErrAlreadyExists
	}
	r.agents[cfg.ID] = entry
	r.mu.Unlock()

	// Capability card fetch is best-effort; a missing or failing info
	// endpoint never fails registration.
	if card := r.fetchCapabilityCard(ctx, &cfg); card != nil {
		entry.mu.Lock()
		entry.card = card
		entry.mu.Unlock()
	}

	if cfg.HealthCheckInterval > 0 {
		r.wg.Add(1)
		go r.runHealthChecks(entry, cfg.HealthCheckInterval)
	}

	slog.Info("External agent registered",
		"agent_id", cfg.ID,
		"base_url", cfg.BaseURL,
		"streaming", cfg.Streaming,
		"health_check_interval", cfg.HealthCheckInterval.String())

	return r.snapshot(entry), nil
}

// Unregister removes an agent and stops its health ticker.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	entry, ok := r.agents[id]
	if ok {
		delete(r.agents, id)
	}
	r.mu.Unlock()
	if !ok {
		return services.ErrAgentNotFound
	}

	close(entry.stopHealth)
	slog.Info("External agent unregistered", "agent_id", id)
	return nil
}

// Config returns the immutable registration config for an agent.
func (r *Registry) Config(id string) (models.ExternalAgentConfig, error) {
	entry, err := r.get(id)
	if err != nil {
		return models.ExternalAgentConfig{}, err
	}
	return entry.config, nil
}

// Card returns the capability card fetched at registration, if any.
func (r *Registry) Card(id string) (*models.CapabilityCard, error) {
	entry, err := r.get(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.card, nil
}

// Snapshot returns a point-in-time view of one agent's runtime state.
func (r *Registry) Snapshot(id string) (*models.AgentSnapshot, error) {
	entry, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return r.snapshot(entry), nil
}

// List returns snapshots for all registered agents, ordered by id.
func (r *Registry) List() []*models.AgentSnapshot {
	r.mu.RLock()
	entries := make([]*agentEntry, 0, len(r.agents))
	for _, entry := range r.agents {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	snapshots := make([]*models.AgentSnapshot, 0, len(entries))
	for _, entry := range entries {
		snapshots = append(snapshots, r.snapshot(entry))
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID < snapshots[j].ID })
	return snapshots
}

// SetEnabled flips an agent's administrative enabled flag.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	entry, err := r.get(id)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	entry.enabled = enabled
	entry.mu.Unlock()
	slog.Info("External agent availability changed", "agent_id", id, "enabled", enabled)
	return nil
}

// Available reports whether the agent would accept a call right now.
func (r *Registry) Available(id string) bool {
	entry, err := r.get(id)
	if err != nil {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return r.availableLocked(entry)
}

// Acquire reserves an in-flight slot on the agent, failing when the agent is
// disabled or unavailable. Callers must Release after the call completes.
func (r *Registry) Acquire(id string) error {
	entry, err := r.get(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.enabled {
		return services.ErrAgentDisabled
	}
	if !r.availableLocked(entry) {
		return services.ErrAgentUnavailable
	}
	entry.activeRequests++
	return nil
}

// Release frees an in-flight slot.
func (r *Registry) Release(id string) {
	entry, err := r.get(id)
	if err != nil {
		return
	}
	entry.mu.Lock()
	if entry.activeRequests > 0 {
		entry.activeRequests--
	}
	entry.mu.Unlock()
}

// RecordSuccess folds one successful call into the agent's counters and the
// rolling latency average.
func (r *Registry) RecordSuccess(id string, latencyMs float64) {
	entry, err := r.get(id)
	if err != nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.totalRequests++
	if entry.totalRequests == 1 {
		entry.avgResponseMs = latencyMs
	} else {
		entry.avgResponseMs = 0.1*latencyMs + 0.9*entry.avgResponseMs
	}
}

// RecordFailure folds one failed call into the counters and evaluates the
// circuit breaker.
func (r *Registry) RecordFailure(id string) {
	entry, err := r.get(id)
	if err != nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.totalRequests++
	entry.totalErrors++
	r.evaluateCircuitLocked(entry)
}

// Stop terminates all health tickers and waits for them to exit.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// availableLocked is the availability predicate. It also performs the lazy
// circuit reset: once the reset deadline passes the breaker closes and the
// window counters clear, making the next call the probe.
func (r *Registry) availableLocked(entry *agentEntry) bool {
	if entry.circuitBroken && entry.circuitResetAt != nil && !r.now().Before(*entry.circuitResetAt) {
		entry.circuitBroken = false
		entry.circuitResetAt = nil
		entry.totalRequests = 0
		entry.totalErrors = 0
		slog.Info("Circuit breaker reset", "agent_id", entry.config.ID)
	}

	if !entry.enabled {
		return false
	}
	if entry.circuitBroken {
		return false
	}
	if entry.health == models.HealthUnhealthy {
		return false
	}
	if entry.config.MaxConcurrency > 0 && entry.activeRequests >= entry.config.MaxConcurrency {
		return false
	}
	return true
}

// evaluateCircuitLocked trips the breaker when the request window is large
// enough and failing more than half the time.
func (r *Registry) evaluateCircuitLocked(entry *agentEntry) {
	if entry.circuitBroken {
		return
	}
	if entry.totalRequests < int64(r.config.CircuitMinRequests) {
		return
	}
	errorRate := float64(entry.totalErrors) / float64(entry.totalRequests)
	if errorRate <= r.config.CircuitErrorRate {
		return
	}

	resetAt := r.now().Add(r.config.CircuitResetTimeout)
	entry.circuitBroken = true
	entry.circuitResetAt = &resetAt

	slog.Warn("Circuit breaker tripped",
		"agent_id", entry.config.ID,
		"total_requests", entry.totalRequests,
		"total_errors", entry.totalErrors,
		"error_rate", fmt.Sprintf("%.2f", errorRate),
		"reset_at", resetAt.Format(time.RFC3339))
}

// resetCircuitLocked closes the breaker outside the lazy path (healthy
// health-check result).
func (r *Registry) resetCircuitLocked(entry *agentEntry) {
	if !entry.circuitBroken {
		return
	}
	entry.circuitBroken = false
	entry.circuitResetAt = nil
	entry.totalRequests = 0
	entry.totalErrors = 0
	slog.Info("Circuit breaker reset by recovered health check", "agent_id", entry.config.ID)
}

func (r *Registry) get(id string) (*agentEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.agents[id]
	if !ok {
		return nil, services.ErrAgentNotFound
	}
	return entry, nil
}

func (r *Registry) snapshot(entry *agentEntry) *models.AgentSnapshot {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	snap := &models.AgentSnapshot{
		ID:             entry.config.ID,
		Name:           entry.config.Name,
		Enabled:        entry.enabled,
		Health:         entry.health,
		LastChecked:    entry.lastChecked,
		ActiveRequests: entry.activeRequests,
		MaxConcurrency: entry.config.MaxConcurrency,
		TotalRequests:  entry.totalRequests,
		TotalErrors:    entry.totalErrors,
		AvgResponseMs:  entry.avgResponseMs,
		CircuitBroken:  entry.circuitBroken,
		CircuitResetAt: entry.circuitResetAt,
		Streaming:      entry.config.Streaming,
	}
	snap.Available = r.availableLocked(entry)
	return snap
}

// defaultAgentConfig builds the registration defaults from proxy config.
func (r *Registry) defaultAgentConfig() models.ExternalAgentConfig {
	return models.ExternalAgentConfig{
		Endpoints: models.EndpointConfig{
			Execute: "/execute",
			Stream:  "/execute/stream",
			Health:  "/health",
			Info:    "/info",
			Cancel:  "/cancel",
		},
		Streaming: models.StreamProtocolNone,
		Auth: models.AuthConfig{
			Method: models.AuthMethodNone,
		},
		Retry: models.RetryPolicy{
			MaxRetries:        r.config.Retry.MaxRetries,
			InitialDelay:      r.config.Retry.InitialDelay,
			MaxDelay:          r.config.Retry.MaxDelay,
			Multiplier:        r.config.Retry.Multiplier,
			RetryableStatuses: append([]int(nil), r.config.Retry.RetryableStatuses...),
		},
		ConnectTimeout:      r.config.ConnectTimeout,
		RequestTimeout:      r.config.RequestTimeout,
		MaxConcurrency:      r.config.MaxConcurrency,
		HealthCheckInterval: r.config.HealthCheckInterval,
	}
}

// validateAgentConfig rejects configs that merged into something unusable.
func validateAgentConfig(cfg *models.ExternalAgentConfig) error {
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return services.NewValidationError("base_url", "base URL must start with http:// or https://")
	}
	switch cfg.Streaming {
	case models.StreamProtocolSSE, models.StreamProtocolWebSocket,
		models.StreamProtocolChunked, models.StreamProtocolNone:
	default:
		return services.NewValidationError("streaming",
			fmt.Sprintf("unknown streaming protocol '%s'", cfg.Streaming))
	}
	switch cfg.Auth.Method {
	case models.AuthMethodNone, models.AuthMethodAPIKey,
		models.AuthMethodBearer, models.AuthMethodBasic:
	default:
		return services.NewValidationError("auth.method",
			fmt.Sprintf("unknown auth method '%s'", cfg.Auth.Method))
	}
	return nil
}

// fetchCapabilityCard GETs the agent's info endpoint. Any failure returns nil.
func (r *Registry) fetchCapabilityCard(ctx context.Context, cfg *models.ExternalAgentConfig) *models.CapabilityCard {
	if cfg.Endpoints.Info == "" {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, joinURL(cfg.BaseURL, cfg.Endpoints.Info), nil)
	if err != nil {
		return nil
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Debug("Capability card fetch failed", "agent_id", cfg.ID, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	var card models.CapabilityCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		slog.Debug("Capability card decode failed", "agent_id", cfg.ID, "error", err)
		return nil
	}
	return &card
}

// joinURL concatenates a base URL and a path without doubling slashes.
func joinURL(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
