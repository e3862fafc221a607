package api

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"

	entjob "github.com/openagora/agora/ent/job"
	"github.com/openagora/agora/pkg/models"
)

// JobAcceptedResponse is returned by POST /api/v1/jobs.
type JobAcceptedResponse struct {
	JobID     string                     `json:"job_id"`
	Status    string                     `json:"status"`
	StatusURL string                     `json:"status_url"`
	Warning   *models.DeprecationWarning `json:"warning,omitempty"`
}

// CancelResponse is returned by POST /api/v1/jobs/:id/cancel.
type CancelResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// submitJobHandler handles POST /api/v1/jobs. The job is admitted to the
// queue and executed asynchronously; poll the status URL or subscribe to
// /jobs/:id/events for progress.
func (s *Server) submitJobHandler(c *echo.Context) error {
	var req models.CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AgentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id is required")
	}
	if req.Input == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "input is required")
	}
	if req.Priority < 0 || req.Priority > 10 {
		return echo.NewHTTPError(http.StatusBadRequest, "priority must be between 0 and 10")
	}

	// The tenant header is authoritative; a tenant_id in the body is ignored.
	req.TenantID = requestTenant(c)
	req.ClientIP = clientIP(c)
	if req.UserID == "" {
		req.UserID = extractAuthor(c)
	}

	res, err := s.orchestrator.Submit(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusAccepted, &JobAcceptedResponse{
		JobID:     res.Job.ID,
		Status:    string(res.Job.Status),
		StatusURL: "/api/v1/jobs/" + res.Job.ID,
		Warning:   res.Warning,
	})
}

// getJobHandler handles GET /api/v1/jobs/:id.
func (s *Server) getJobHandler(c *echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job id is required")
	}

	job, err := s.jobService.Get(c.Request().Context(), jobID, requestTenant(c), s.isAdmin(c))
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, job)
}

// listJobsHandler handles GET /api/v1/jobs.
func (s *Server) listJobsHandler(c *echo.Context) error {
	var filters models.JobFilters

	if v := c.QueryParam("status"); v != "" {
		if err := entjob.StatusValidator(entjob.Status(v)); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status: "+v)
		}
		filters.Status = v
	}
	filters.AgentID = c.QueryParam("agent_id")

	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since: must be RFC3339")
		}
		filters.Since = &t
	}
	if v := c.QueryParam("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid until: must be RFC3339")
		}
		filters.Until = &t
	}

	if v := c.QueryParam("order"); v != "" {
		switch v {
		case "asc", "desc":
			filters.Order = v
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order: must be asc or desc")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filters.Limit = n
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: must be 1-100")
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filters.Offset = n
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
	}

	result, err := s.jobService.List(c.Request().Context(), requestTenant(c), filters)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// cancelJobHandler handles POST /api/v1/jobs/:id/cancel. Pending jobs are
// removed from the queue; processing jobs get their run context cancelled.
func (s *Server) cancelJobHandler(c *echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job id is required")
	}

	job, err := s.orchestrator.CancelJob(c.Request().Context(), jobID, requestTenant(c), s.isAdmin(c))
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &CancelResponse{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: "Job cancellation requested",
	})
}

// jobEventsHandler handles GET /api/v1/jobs/:id/events. Attaches to the
// job's live event stream over SSE; finished jobs replay their terminal
// event and close.
func (s *Server) jobEventsHandler(c *echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job id is required")
	}

	events, cancelSub, err := s.orchestrator.Subscribe(c.Request().Context(), jobID, requestTenant(c), s.isAdmin(c))
	if err != nil {
		return mapServiceError(err)
	}
	defer cancelSub()

	return s.serveSSE(c, events)
}
