// Package proxy issues outbound calls to external agents on behalf of the
// orchestrator: synchronous execute with retries and backoff, streaming
// execute over SSE/WebSocket/chunked transports, and best-effort cancels.
// Availability gating and failure accounting live in the registry; the proxy
// reports every attempt outcome back to it.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/registry"
	"github.com/openagora/agora/pkg/services"
)

// maxErrorBodyBytes bounds how much of an upstream error body is kept for
// diagnostics.
const maxErrorBodyBytes = 4096

// Proxy executes requests against registered external agents.
type Proxy struct {
	registry   *registry.Registry
	config     *config.ProxyConfig
	httpClient *http.Client
}

// NewProxy creates a proxy bound to the agent registry. Per-request timeouts
// come from each agent's config, so the shared client carries none.
func NewProxy(reg *registry.Registry, cfg *config.ProxyConfig) *Proxy {
	if reg == nil {
		panic("proxy requires a registry")
	}
	if cfg == nil {
		panic("proxy requires proxy configuration")
	}
	return &Proxy{
		registry:   reg,
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// Execute POSTs the request to the agent's execute endpoint and returns the
// parsed response. Transient failures (timeouts and retryable statuses) are
// retried with exponential backoff until the agent's retry budget runs out.
func (p *Proxy) Execute(ctx context.Context, agentID string, request *models.AgentExecuteRequest) (*models.AgentExecuteResponse, error) {
	cfg, err := p.registry.Config(agentID)
	if err != nil {
		return nil, err
	}
	if err := p.registry.Acquire(agentID); err != nil {
		return nil, err
	}
	defer p.registry.Release(agentID)

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execute request: %w", err)
	}

	url := joinURL(cfg.BaseURL, cfg.Endpoints.Execute)
	maxAttempts := cfg.Retry.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	log := slog.With("agent_id", agentID, "request_id", request.RequestID)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, attemptErr := p.attempt(ctx, &cfg, url, body)
		if attemptErr == nil {
			return response, nil
		}
		lastErr = attemptErr

		var upstream *services.UpstreamError
		retryable := errors.Is(attemptErr, services.ErrTimeout) ||
			(errors.As(attemptErr, &upstream) && upstream.Retryable)

		if !retryable {
			return nil, attemptErr
		}
		if attempt == maxAttempts {
			break
		}
		// The submitting context is gone; no point waiting out the backoff.
		if ctx.Err() != nil {
			return nil, lastErr
		}

		delay := backoff(cfg.Retry, attempt)
		log.Warn("Retrying external agent call",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay.Round(time.Millisecond).String(),
			"error", attemptErr)

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%w for agent '%s' after %d attempts: %v",
		services.ErrMaxRetriesExceeded, agentID, maxAttempts, lastErr)
}

// attempt performs one execute round trip and records its outcome with the
// registry.
func (p *Proxy) attempt(ctx context.Context, cfg *models.ExternalAgentConfig, url string, body []byte) (*models.AgentExecuteResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, cfg.Auth)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	latency := time.Since(start)

	if err != nil {
		p.registry.RecordFailure(cfg.ID)
		if reqCtx.Err() != nil {
			return nil, fmt.Errorf("request to agent '%s' aborted after %v: %w",
				cfg.ID, latency.Round(time.Millisecond), services.ErrTimeout)
		}
		return nil, fmt.Errorf("request to agent '%s' failed: %v: %w", cfg.ID, err, services.ErrTimeout)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.registry.RecordFailure(cfg.ID)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, services.NewUpstreamError(cfg.ID, resp.StatusCode, string(snippet),
			p.isRetryableStatus(cfg, resp.StatusCode))
	}

	var response models.AgentExecuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		p.registry.RecordFailure(cfg.ID)
		return nil, fmt.Errorf("failed to decode response from agent '%s': %w", cfg.ID, err)
	}

	p.registry.RecordSuccess(cfg.ID, float64(latency.Milliseconds()))
	return &response, nil
}

// Cancel POSTs the agent's cancel endpoint. Best effort: the caller's local
// transition never waits on the outcome.
func (p *Proxy) Cancel(ctx context.Context, agentID, requestID string) error {
	cfg, err := p.registry.Config(agentID)
	if err != nil {
		return err
	}
	if cfg.Endpoints.Cancel == "" {
		return nil
	}

	body, _ := json.Marshal(map[string]string{"request_id": requestID})

	reqCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		joinURL(cfg.BaseURL, cfg.Endpoints.Cancel), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, cfg.Auth)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cancel request to agent '%s' returned %d", agentID, resp.StatusCode)
	}
	return nil
}

// isRetryableStatus consults the agent's retryable set, falling back to the
// proxy-wide default.
func (p *Proxy) isRetryableStatus(cfg *models.ExternalAgentConfig, status int) bool {
	statuses := cfg.Retry.RetryableStatuses
	if len(statuses) == 0 {
		statuses = p.config.Retry.RetryableStatuses
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// applyAuth sets outbound auth headers per the agent's auth method.
func applyAuth(req *http.Request, auth models.AuthConfig) {
	switch auth.Method {
	case models.AuthMethodAPIKey:
		header := auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, auth.Token)
	case models.AuthMethodBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case models.AuthMethodBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
	}
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
