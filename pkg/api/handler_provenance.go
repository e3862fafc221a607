package api

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"
)

// provenanceHandler handles GET /api/v1/provenance. Exactly one of the
// trace or run query params selects a correlated set; with neither, the
// most recent records are returned, optionally narrowed by type.
func (s *Server) provenanceHandler(c *echo.Context) error {
	if s.provenance == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "provenance log is not available")
	}

	traceID := c.QueryParam("trace")
	runID := c.QueryParam("run")
	if traceID != "" && runID != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trace and run are mutually exclusive")
	}

	ctx := c.Request().Context()
	switch {
	case traceID != "":
		records, err := s.provenance.ByTrace(ctx, traceID)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(http.StatusOK, records)
	case runID != "":
		records, err := s.provenance.ByRun(ctx, runID)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(http.StatusOK, records)
	}

	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: must be 1-1000")
		}
	}
	records, err := s.provenance.Recent(ctx, limit, c.QueryParam("type"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, records)
}

// provenanceStatsHandler handles GET /api/v1/provenance/stats. The window
// defaults to the last 24 hours.
func (s *Server) provenanceStatsHandler(c *echo.Context) error {
	if s.provenance == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "provenance log is not available")
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from: must be RFC3339")
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to: must be RFC3339")
		}
		to = t
	}
	if !from.Before(to) {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	stats, err := s.provenance.Stats(c.Request().Context(), from, to)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
