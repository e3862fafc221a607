package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
)

func TestSubmitJobHandler_Validation(t *testing.T) {
	// We only test request validation (returns 400 before hitting the
	// orchestrator). Happy-path is covered by integration tests that have
	// a real queue and database.
	s := &Server{}

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "missing agent_id",
			body:   `{"input": {"text": "hello"}}`,
			errMsg: "agent_id is required",
		},
		{
			name:   "missing input",
			body:   `{"agent_id": "summarizer"}`,
			errMsg: "input is required",
		},
		{
			name:   "priority above range",
			body:   `{"agent_id": "summarizer", "input": {}, "priority": 11}`,
			errMsg: "priority must be between 0 and 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := s.submitJobHandler(c)
			if assert.Error(t, err) {
				he, ok := err.(*echo.HTTPError)
				if assert.True(t, ok, "expected echo.HTTPError") {
					assert.Equal(t, http.StatusBadRequest, he.Code)
					assert.Contains(t, he.Message, tt.errMsg)
				}
			}
		})
	}

	t.Run("malformed JSON body", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"agent_id": `))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := s.submitJobHandler(c)
		if assert.Error(t, err) {
			he, ok := err.(*echo.HTTPError)
			if assert.True(t, ok) {
				assert.Equal(t, http.StatusBadRequest, he.Code)
			}
		}
	})
}

func TestListJobsHandler_Validation(t *testing.T) {
	s := &Server{}

	tests := []struct {
		name   string
		query  string
		errMsg string
	}{
		{
			name:   "invalid status value",
			query:  "status=bogus",
			errMsg: "invalid status",
		},
		{
			name:   "invalid since",
			query:  "since=not-a-date",
			errMsg: "invalid since",
		},
		{
			name:   "until wrong format (not RFC3339)",
			query:  "until=2024-01-01",
			errMsg: "invalid until",
		},
		{
			name:   "invalid order",
			query:  "order=random",
			errMsg: "invalid order",
		},
		{
			name:   "limit zero",
			query:  "limit=0",
			errMsg: "invalid limit",
		},
		{
			name:   "limit above cap",
			query:  "limit=500",
			errMsg: "invalid limit",
		},
		{
			name:   "negative offset",
			query:  "offset=-1",
			errMsg: "invalid offset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?"+tt.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := s.listJobsHandler(c)
			if assert.Error(t, err) {
				he, ok := err.(*echo.HTTPError)
				if assert.True(t, ok, "expected echo.HTTPError") {
					assert.Equal(t, http.StatusBadRequest, he.Code)
					assert.Contains(t, he.Message, tt.errMsg)
				}
			}
		})
	}
}

func TestGetJobHandler_MissingID(t *testing.T) {
	s := &Server{}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.getJobHandler(c)
	if assert.Error(t, err) {
		he, ok := err.(*echo.HTTPError)
		if assert.True(t, ok, "expected echo.HTTPError") {
			assert.Equal(t, http.StatusBadRequest, he.Code)
			assert.Contains(t, he.Message, "job id")
		}
	}
}

func TestCancelJobHandler_MissingID(t *testing.T) {
	s := &Server{}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs//cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.cancelJobHandler(c)
	if assert.Error(t, err) {
		he, ok := err.(*echo.HTTPError)
		if assert.True(t, ok, "expected echo.HTTPError") {
			assert.Equal(t, http.StatusBadRequest, he.Code)
			assert.Contains(t, he.Message, "job id")
		}
	}
}
