package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/pkg/models"
)

func TestRunAgentHandler_Validation(t *testing.T) {
	// Requests go through the real router so the :id path param is bound.
	// Validation failures return before any backing service is touched, so
	// the server needs none. Happy-path is covered by integration tests.
	s := NewServer(nil, nil, nil, nil, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		errMsg string
	}{
		{
			name:   "missing input",
			path:   "/api/v1/agents/summarizer/run",
			body:   `{"priority": 3}`,
			errMsg: "input is required",
		},
		{
			name:   "priority above range",
			path:   "/api/v1/agents/summarizer/run",
			body:   `{"input": {}, "priority": 99}`,
			errMsg: "priority must be between 0 and 10",
		},
		{
			name:   "stream endpoint shares validation",
			path:   "/api/v1/agents/summarizer/stream",
			body:   `{"priority": 1}`,
			errMsg: "input is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			s.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.errMsg)
		})
	}

	t.Run("malformed JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/agents/summarizer/run", strings.NewReader(`{"input": `))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		s.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWriteSSEEvent(t *testing.T) {
	// httptest.ResponseRecorder implements http.Flusher.
	rec := httptest.NewRecorder()

	ev := models.StreamEvent{
		Type:      models.EventToken,
		Data:      map[string]interface{}{"text": "hello"},
		Timestamp: "2025-01-02T03:04:05.000000006Z",
		Seq:       7,
	}
	require.NoError(t, writeSSEEvent(rec, rec, ev))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: token\nid: 7\ndata: "), "frame prefix: %q", body)
	assert.True(t, strings.HasSuffix(body, "\n\n"), "frame must end with a blank line")
	assert.Contains(t, body, `"text":"hello"`)
	assert.Contains(t, body, `"seq":7`)
	assert.True(t, rec.Flushed, "frame must be flushed to the client")
}
