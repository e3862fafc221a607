package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/models"
)

// registerExternalAgentHandler handles POST /api/v1/external-agents. On
// success the agent's capability card (when its info endpoint served one)
// is already folded into the returned snapshot.
func (s *Server) registerExternalAgentHandler(c *echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "agent registry is not available")
	}

	var cfg models.ExternalAgentConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snap, err := s.registry.Register(c.Request().Context(), cfg)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, snap)
}

// listExternalAgentsHandler handles GET /api/v1/external-agents.
func (s *Server) listExternalAgentsHandler(c *echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "agent registry is not available")
	}
	return c.JSON(http.StatusOK, s.registry.List())
}

// getExternalAgentHandler handles GET /api/v1/external-agents/:id.
func (s *Server) getExternalAgentHandler(c *echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "agent registry is not available")
	}

	agentID := c.Param("id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	snap, err := s.registry.Snapshot(agentID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

// enableExternalAgentHandler handles POST /api/v1/external-agents/:id/enable.
func (s *Server) enableExternalAgentHandler(c *echo.Context) error {
	return s.setExternalAgentEnabled(c, true)
}

// disableExternalAgentHandler handles POST /api/v1/external-agents/:id/disable.
// Disabling takes effect on the next dispatch; in-flight runs finish.
func (s *Server) disableExternalAgentHandler(c *echo.Context) error {
	return s.setExternalAgentEnabled(c, false)
}

func (s *Server) setExternalAgentEnabled(c *echo.Context, enabled bool) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "agent registry is not available")
	}

	agentID := c.Param("id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	if err := s.registry.SetEnabled(agentID, enabled); err != nil {
		return mapServiceError(err)
	}
	snap, err := s.registry.Snapshot(agentID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

// unregisterExternalAgentHandler handles DELETE /api/v1/external-agents/:id.
func (s *Server) unregisterExternalAgentHandler(c *echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "agent registry is not available")
	}

	agentID := c.Param("id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	if err := s.registry.Unregister(agentID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// upsertListingHandler handles POST /api/v1/listings.
func (s *Server) upsertListingHandler(c *echo.Context) error {
	var req models.UpsertListingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	listing, err := s.listingService.Upsert(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, listing)
}

// deleteListingHandler handles DELETE /api/v1/listings/:id.
func (s *Server) deleteListingHandler(c *echo.Context) error {
	agentID := c.Param("id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	if err := s.listingService.Delete(c.Request().Context(), agentID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
