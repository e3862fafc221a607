package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/models"
)

// registerVersionHandler handles POST /api/v1/versions.
func (s *Server) registerVersionHandler(c *echo.Context) error {
	if s.versionService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "version registry is not available")
	}

	var req models.RegisterVersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := s.versionService.Register(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// getVersionHandler handles GET /api/v1/versions/:id.
func (s *Server) getVersionHandler(c *echo.Context) error {
	if s.versionService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "version registry is not available")
	}

	artifactID := c.Param("id")
	if artifactID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "artifact id is required")
	}

	rec, err := s.versionService.Get(c.Request().Context(), artifactID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// deprecateVersionHandler handles POST /api/v1/versions/:id/deprecate.
func (s *Server) deprecateVersionHandler(c *echo.Context) error {
	if s.versionService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "version registry is not available")
	}

	artifactID := c.Param("id")
	if artifactID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "artifact id is required")
	}

	var req models.DeprecateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := s.versionService.Deprecate(c.Request().Context(), artifactID, req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// sunsetVersionHandler handles POST /api/v1/versions/:id/sunset. Forces the
// artifact to sunset immediately regardless of its scheduled date.
func (s *Server) sunsetVersionHandler(c *echo.Context) error {
	if s.versionService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "version registry is not available")
	}

	artifactID := c.Param("id")
	if artifactID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "artifact id is required")
	}

	rec, err := s.versionService.Sunset(c.Request().Context(), artifactID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// checkCompatibilityHandler handles GET /api/v1/versions/:id/compatibility.
// The version query param names the caller's pinned version.
func (s *Server) checkCompatibilityHandler(c *echo.Context) error {
	if s.versionService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "version registry is not available")
	}

	artifactID := c.Param("id")
	if artifactID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "artifact id is required")
	}
	requested := c.QueryParam("version")
	if requested == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "version query param is required")
	}

	result, err := s.versionService.CheckCompatibility(c.Request().Context(), artifactID, requested)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}
