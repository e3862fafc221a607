package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/models"
)

// RunAgentRequest is the body for POST /api/v1/agents/:id/run and
// POST /api/v1/agents/:id/stream.
type RunAgentRequest struct {
	Input               map[string]interface{} `json:"input"`
	Priority            int                    `json:"priority,omitempty"`
	WebhookURL          string                 `json:"webhook_url,omitempty"`
	IdempotencyKey      string                 `json:"idempotency_key,omitempty"`
	TraceID             string                 `json:"trace_id,omitempty"`
	Debug               bool                   `json:"debug,omitempty"`
	EstimatedDurationMs int64                  `json:"estimated_duration_ms,omitempty"`
	AgentVersion        string                 `json:"agent_version,omitempty"`
}

// RunAgentResponse is the synchronous run result. StatusURL is set when the
// run outlived the sync wait and the caller should poll instead.
type RunAgentResponse struct {
	JobID     string                     `json:"job_id"`
	Status    string                     `json:"status"`
	Output    map[string]interface{}     `json:"output,omitempty"`
	Cost      *float64                   `json:"cost,omitempty"`
	Error     *models.ErrorPayload       `json:"error,omitempty"`
	Warning   *models.DeprecationWarning `json:"warning,omitempty"`
	StatusURL string                     `json:"status_url,omitempty"`
}

// bindRunRequest binds the shared run body and fills in transport fields.
func (s *Server) bindRunRequest(c *echo.Context) (models.CreateJobRequest, error) {
	agentID := c.Param("id")
	if agentID == "" {
		return models.CreateJobRequest{}, echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	var body RunAgentRequest
	if err := c.Bind(&body); err != nil {
		return models.CreateJobRequest{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Input == nil {
		return models.CreateJobRequest{}, echo.NewHTTPError(http.StatusBadRequest, "input is required")
	}
	if body.Priority < 0 || body.Priority > 10 {
		return models.CreateJobRequest{}, echo.NewHTTPError(http.StatusBadRequest, "priority must be between 0 and 10")
	}

	return models.CreateJobRequest{
		AgentID:             agentID,
		TenantID:            requestTenant(c),
		UserID:              extractAuthor(c),
		Input:               body.Input,
		Priority:            body.Priority,
		WebhookURL:          body.WebhookURL,
		IdempotencyKey:      body.IdempotencyKey,
		TraceID:             body.TraceID,
		Debug:               body.Debug,
		EstimatedDurationMs: body.EstimatedDurationMs,
		AgentVersion:        body.AgentVersion,
		ClientIP:            clientIP(c),
	}, nil
}

// runAgentHandler handles POST /api/v1/agents/:id/run. Executes the agent
// and waits for the result; falls back to the async 202 contract when the
// run outlives the sync budget or when ?mode=async is requested.
func (s *Server) runAgentHandler(c *echo.Context) error {
	req, err := s.bindRunRequest(c)
	if err != nil {
		return err
	}

	if c.QueryParam("mode") == "async" {
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

	res, err := s.orchestrator.ExecuteSync(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}

	out := &RunAgentResponse{
		JobID:   res.Job.ID,
		Status:  res.Status,
		Output:  res.Output,
		Cost:    res.Cost,
		Error:   res.Error,
		Warning: res.Warning,
	}
	if res.TimedOut {
		out.StatusURL = "/api/v1/jobs/" + res.Job.ID
		return c.JSON(http.StatusAccepted, out)
	}
	return c.JSON(http.StatusOK, out)
}

// streamAgentHandler handles POST /api/v1/agents/:id/stream. Submits the
// job and relays its event stream over SSE until the terminal event.
func (s *Server) streamAgentHandler(c *echo.Context) error {
	req, err := s.bindRunRequest(c)
	if err != nil {
		return err
	}

	_, events, cancelSub, err := s.orchestrator.ExecuteStreaming(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	defer cancelSub()

	return s.serveSSE(c, events)
}

// serveSSE relays stream events to the client in SSE wire format until the
// channel closes or the client disconnects. Keep-alive comments are written
// between events so intermediaries do not drop the connection.
func (s *Server) serveSSE(c *echo.Context, events <-chan models.StreamEvent) error {
	rw := c.Response()

	flusher, ok := http.ResponseWriter(rw).(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	h := rw.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable nginx buffering
	rw.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := 15 * time.Second
	if s.cfg != nil && s.cfg.Streams != nil && s.cfg.Streams.SSEKeepalive > 0 {
		keepalive = s.cfg.Streams.SSEKeepalive
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(rw, ": keep-alive\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return nil
			}
			if err := writeSSEEvent(rw, flusher, ev); err != nil {
				return nil
			}
		}
	}
}

// writeSSEEvent writes one event as an SSE frame: event, id, then data.
func writeSSEEvent(w io.Writer, flusher http.Flusher, ev models.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", ev.Type, ev.Seq, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
