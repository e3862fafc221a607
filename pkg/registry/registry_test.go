package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/services"
)

func newTestRegistry() *Registry {
	cfg := config.DefaultProxyConfig()
	cfg.HealthCheckInterval = 0 // no background tickers in unit tests
	return NewRegistry(cfg)
}

// steppedClock returns times advancing by step on every call.
type steppedClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *steppedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func register(t *testing.T, r *Registry, cfg models.ExternalAgentConfig) *models.AgentSnapshot {
	t.Helper()
	snap, err := r.Register(context.Background(), cfg)
	require.NoError(t, err)
	return snap
}

func TestRegister(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "summarizer", BaseURL: "http://agents.local"})

		cfg, err := r.Config("summarizer")
		require.NoError(t, err)
		assert.Equal(t, "/execute", cfg.Endpoints.Execute)
		assert.Equal(t, "/health", cfg.Endpoints.Health)
		assert.Equal(t, models.StreamProtocolNone, cfg.Streaming)
		assert.Equal(t, models.AuthMethodNone, cfg.Auth.Method)
		assert.Equal(t, 3, cfg.Retry.MaxRetries)
		assert.Contains(t, cfg.Retry.RetryableStatuses, 503)
	})

	t.Run("supplied fields win over defaults", func(t *testing.T) {
		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{
			ID:        "custom",
			BaseURL:   "http://agents.local",
			Endpoints: models.EndpointConfig{Execute: "/v2/run"},
			Streaming: models.StreamProtocolSSE,
			Retry:     models.RetryPolicy{MaxRetries: 1},
		})

		cfg, err := r.Config("custom")
		require.NoError(t, err)
		assert.Equal(t, "/v2/run", cfg.Endpoints.Execute)
		assert.Equal(t, models.StreamProtocolSSE, cfg.Streaming)
		assert.Equal(t, 1, cfg.Retry.MaxRetries)
		// Unset nested fields still fall back.
		assert.Equal(t, "/health", cfg.Endpoints.Health)
	})

	t.Run("fetches capability card best-effort", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			require.Equal(t, "/info", req.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Summarizer","version":"2.1.0","capabilities":["summarize"]}`))
		}))
		defer srv.Close()

		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "summarizer", BaseURL: srv.URL})

		card, err := r.Card("summarizer")
		require.NoError(t, err)
		require.NotNil(t, card)
		assert.Equal(t, "Summarizer", card.Name)
		assert.Equal(t, []string{"summarize"}, card.Capabilities)
	})

	t.Run("unreachable info endpoint is not fatal", func(t *testing.T) {
		r := newTestRegistry()
		snap := register(t, r, models.ExternalAgentConfig{ID: "offline", BaseURL: "http://127.0.0.1:1"})
		assert.Equal(t, models.HealthUnknown, snap.Health)

		card, err := r.Card("offline")
		require.NoError(t, err)
		assert.Nil(t, card)
	})

	t.Run("rejects duplicates and bad configs", func(t *testing.T) {
		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "dup", BaseURL: "http://agents.local"})

		_, err := r.Register(context.Background(), models.ExternalAgentConfig{ID: "dup", BaseURL: "http://agents.local"})
		assert.ErrorIs(t, err, services.ErrAlreadyExists)

		_, err = r.Register(context.Background(), models.ExternalAgentConfig{BaseURL: "http://agents.local"})
		assert.True(t, services.IsValidationError(err))

		_, err = r.Register(context.Background(), models.ExternalAgentConfig{ID: "x", BaseURL: "ftp://nope"})
		assert.True(t, services.IsValidationError(err))

		_, err = r.Register(context.Background(), models.ExternalAgentConfig{ID: "y", BaseURL: "http://ok", Streaming: "telepathy"})
		assert.True(t, services.IsValidationError(err))
	})
}

func TestAvailability(t *testing.T) {
	r := newTestRegistry()
	register(t, r, models.ExternalAgentConfig{ID: "a", BaseURL: "http://agents.local", MaxConcurrency: 2})

	assert.True(t, r.Available("a"))
	assert.False(t, r.Available("ghost"))

	t.Run("disabled agent is unavailable", func(t *testing.T) {
		require.NoError(t, r.SetEnabled("a", false))
		assert.False(t, r.Available("a"))
		assert.ErrorIs(t, r.Acquire("a"), services.ErrAgentDisabled)
		require.NoError(t, r.SetEnabled("a", true))
	})

	t.Run("max concurrency caps acquires", func(t *testing.T) {
		require.NoError(t, r.Acquire("a"))
		require.NoError(t, r.Acquire("a"))
		assert.ErrorIs(t, r.Acquire("a"), services.ErrAgentUnavailable)

		r.Release("a")
		require.NoError(t, r.Acquire("a"))

		r.Release("a")
		r.Release("a")
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("trips after five recorded errors", func(t *testing.T) {
		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "flaky", BaseURL: "http://agents.local"})

		for i := 0; i < 4; i++ {
			r.RecordFailure("flaky")
		}
		snap, err := r.Snapshot("flaky")
		require.NoError(t, err)
		assert.False(t, snap.CircuitBroken, "below the minimum request window")

		r.RecordFailure("flaky")
		snap, err = r.Snapshot("flaky")
		require.NoError(t, err)
		assert.True(t, snap.CircuitBroken)
		require.NotNil(t, snap.CircuitResetAt)
		assert.False(t, snap.Available)
		assert.ErrorIs(t, r.Acquire("flaky"), services.ErrAgentUnavailable)
	})

	t.Run("healthy majority does not trip", func(t *testing.T) {
		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "mostly-ok", BaseURL: "http://agents.local"})

		for i := 0; i < 6; i++ {
			r.RecordSuccess("mostly-ok", 100)
		}
		for i := 0; i < 5; i++ {
			r.RecordFailure("mostly-ok")
		}
		// 5 errors out of 11 requests: rate 0.45, below the threshold.
		snap, err := r.Snapshot("mostly-ok")
		require.NoError(t, err)
		assert.False(t, snap.CircuitBroken)
	})

	t.Run("lazy reset after the deadline, next call is the probe", func(t *testing.T) {
		r := newTestRegistry()
		clock := &steppedClock{t: time.Now(), step: 0}
		r.now = clock.now

		register(t, r, models.ExternalAgentConfig{ID: "flaky", BaseURL: "http://agents.local"})
		for i := 0; i < 5; i++ {
			r.RecordFailure("flaky")
		}
		assert.False(t, r.Available("flaky"))

		// Jump past the reset deadline; availability flips back and the
		// failure window is cleared.
		clock.mu.Lock()
		clock.t = clock.t.Add(31 * time.Second)
		clock.mu.Unlock()

		assert.True(t, r.Available("flaky"))
		snap, err := r.Snapshot("flaky")
		require.NoError(t, err)
		assert.False(t, snap.CircuitBroken)
		assert.Equal(t, int64(0), snap.TotalRequests)
		require.NoError(t, r.Acquire("flaky"))
	})
}

func TestRecordSuccessEWMA(t *testing.T) {
	r := newTestRegistry()
	register(t, r, models.ExternalAgentConfig{ID: "a", BaseURL: "http://agents.local"})

	r.RecordSuccess("a", 100)
	snap, err := r.Snapshot("a")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, snap.AvgResponseMs, 0.001, "first sample seeds the average")

	r.RecordSuccess("a", 200)
	snap, err = r.Snapshot("a")
	require.NoError(t, err)
	assert.InDelta(t, 0.1*200+0.9*100, snap.AvgResponseMs, 0.001)
}

func TestHealthCheck(t *testing.T) {
	newAgentServer := func(status int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path == "/health" {
				w.WriteHeader(status)
				return
			}
			http.NotFound(w, req)
		}))
	}

	t.Run("2xx within threshold is healthy", func(t *testing.T) {
		srv := newAgentServer(http.StatusOK)
		defer srv.Close()

		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "a", BaseURL: srv.URL})
		entry, err := r.get("a")
		require.NoError(t, err)

		r.checkHealth(entry)

		snap, err := r.Snapshot("a")
		require.NoError(t, err)
		assert.Equal(t, models.HealthHealthy, snap.Health)
		require.NotNil(t, snap.LastChecked)
	})

	t.Run("slow 2xx is degraded", func(t *testing.T) {
		srv := newAgentServer(http.StatusOK)
		defer srv.Close()

		r := newTestRegistry()
		// Each clock reading advances 3s, so the probe appears to take 3s
		// against a 1s threshold.
		r.config.HealthLatencyThreshold = time.Second
		r.now = (&steppedClock{t: time.Now(), step: 3 * time.Second}).now

		register(t, r, models.ExternalAgentConfig{ID: "slow", BaseURL: srv.URL})
		entry, err := r.get("slow")
		require.NoError(t, err)

		r.checkHealth(entry)

		snap, err := r.Snapshot("slow")
		require.NoError(t, err)
		assert.Equal(t, models.HealthDegraded, snap.Health)
	})

	t.Run("5xx and network errors are unhealthy and block availability", func(t *testing.T) {
		srv := newAgentServer(http.StatusInternalServerError)
		defer srv.Close()

		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "down", BaseURL: srv.URL})
		entry, err := r.get("down")
		require.NoError(t, err)

		r.checkHealth(entry)
		snap, err := r.Snapshot("down")
		require.NoError(t, err)
		assert.Equal(t, models.HealthUnhealthy, snap.Health)
		assert.False(t, snap.Available)

		register(t, r, models.ExternalAgentConfig{ID: "unreachable", BaseURL: "http://127.0.0.1:1"})
		entry, err = r.get("unreachable")
		require.NoError(t, err)
		r.checkHealth(entry)
		snap, err = r.Snapshot("unreachable")
		require.NoError(t, err)
		assert.Equal(t, models.HealthUnhealthy, snap.Health)
	})

	t.Run("check touches no request counters", func(t *testing.T) {
		srv := newAgentServer(http.StatusInternalServerError)
		defer srv.Close()

		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "a", BaseURL: srv.URL})
		r.RecordSuccess("a", 50)
		r.RecordFailure("a")

		entry, err := r.get("a")
		require.NoError(t, err)
		r.checkHealth(entry)

		snap, err := r.Snapshot("a")
		require.NoError(t, err)
		assert.Equal(t, int64(2), snap.TotalRequests)
		assert.Equal(t, int64(1), snap.TotalErrors)
		assert.InDelta(t, 50.0, snap.AvgResponseMs, 0.001)
	})

	t.Run("recovered health check closes a broken circuit", func(t *testing.T) {
		srv := newAgentServer(http.StatusOK)
		defer srv.Close()

		r := newTestRegistry()
		register(t, r, models.ExternalAgentConfig{ID: "a", BaseURL: srv.URL})
		for i := 0; i < 5; i++ {
			r.RecordFailure("a")
		}
		snap, err := r.Snapshot("a")
		require.NoError(t, err)
		require.True(t, snap.CircuitBroken)

		entry, err := r.get("a")
		require.NoError(t, err)
		r.checkHealth(entry)

		snap, err = r.Snapshot("a")
		require.NoError(t, err)
		assert.False(t, snap.CircuitBroken)
		assert.Equal(t, models.HealthHealthy, snap.Health)
		assert.True(t, snap.Available)
	})
}

func TestUnregister(t *testing.T) {
	r := newTestRegistry()
	register(t, r, models.ExternalAgentConfig{ID: "a", BaseURL: "http://agents.local"})

	require.NoError(t, r.Unregister("a"))
	assert.ErrorIs(t, r.Unregister("a"), services.ErrAgentNotFound)
	assert.False(t, r.Available("a"))
	assert.Len(t, r.List(), 0)
}
