package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/database"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/queue"
	"github.com/openagora/agora/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// HealthCheck is one named component check inside a health response.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SystemHealthResponse is returned by GET /api/v1/system/health. Agents
// carries per-agent health and circuit state; agent problems never degrade
// the overall status because they are external dependencies.
type SystemHealthResponse struct {
	Status  string                  `json:"status"`
	Version string                  `json:"version"`
	Checks  map[string]HealthCheck  `json:"checks"`
	Agents  []*models.AgentSnapshot `json:"agents,omitempty"`
}

// QueueStatsResponse is returned by GET /api/v1/queue/stats.
type QueueStatsResponse struct {
	Queue queue.Stats       `json:"queue"`
	Pool  *queue.PoolHealth `json:"pool,omitempty"`
}

// healthzHandler handles GET /healthz. A pure liveness probe: it never
// touches the database so a dependency outage cannot trigger restarts.
func (s *Server) healthzHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &HealthResponse{
		Status:  healthStatusHealthy,
		Version: version.GitCommit,
	})
}

// systemHealthHandler handles GET /api/v1/system/health.
func (s *Server) systemHealthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if s.dbClient != nil {
		if _, err := database.Health(reqCtx, s.dbClient.DB()); err != nil {
			status = healthStatusUnhealthy
			checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			checks["database"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	if s.orchestrator != nil {
		poolHealth := s.orchestrator.PoolHealth()
		if poolHealth != nil && !poolHealth.IsHealthy {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["worker_pool"] = HealthCheck{Status: healthStatusDegraded}
		} else {
			checks["worker_pool"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	resp := &SystemHealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	}
	if s.registry != nil {
		resp.Agents = s.registry.List()
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, resp)
}

// queueStatsHandler handles GET /api/v1/queue/stats.
func (s *Server) queueStatsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &QueueStatsResponse{
		Queue: s.orchestrator.QueueStats(),
		Pool:  s.orchestrator.PoolHealth(),
	})
}
