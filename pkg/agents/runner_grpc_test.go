package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runnerv1 "github.com/openagora/agora/proto"
)

func TestToRunRequest(t *testing.T) {
	t.Run("encodes task payload", func(t *testing.T) {
		req, err := toRunRequest(Input{
			JobID:    "job-1",
			TenantID: "acme",
			TraceID:  "trace-1",
			Payload:  map[string]interface{}{"prompt": "summarize this"},
		}, "small-v2")
		require.NoError(t, err)
		assert.Equal(t, "job-1", req.JobId)
		assert.Equal(t, "acme", req.TenantId)
		assert.Equal(t, "trace-1", req.TraceId)
		assert.Equal(t, "small-v2", req.Model)
		assert.JSONEq(t, `{"prompt":"summarize this"}`, req.Task)
	})

	t.Run("nil payload encodes as null", func(t *testing.T) {
		req, err := toRunRequest(Input{JobID: "job-2"}, "small-v2")
		require.NoError(t, err)
		assert.Equal(t, "null", req.Task)
	})

	t.Run("unencodable payload fails", func(t *testing.T) {
		_, err := toRunRequest(Input{
			Payload: map[string]interface{}{"bad": func() {}},
		}, "small-v2")
		assert.Error(t, err)
	})
}

func TestFromProtoUsage(t *testing.T) {
	t.Run("with cost", func(t *testing.T) {
		usage := fromProtoUsage(&runnerv1.UsageInfo{
			PromptTokens:     120,
			CompletionTokens: 40,
			Cost:             0.0045,
		})
		assert.Equal(t, 120, usage.PromptTokens)
		assert.Equal(t, 40, usage.CompletionTokens)
		require.NotNil(t, usage.Cost)
		assert.InDelta(t, 0.0045, *usage.Cost, 1e-9)
	})

	t.Run("zero cost stays nil", func(t *testing.T) {
		usage := fromProtoUsage(&runnerv1.UsageInfo{PromptTokens: 10})
		assert.Nil(t, usage.Cost)
	})
}

func TestDecodeRunnerResult(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		doc := decodeRunnerResult(`{"summary":"short","score":0.9}`)
		assert.Equal(t, "short", doc["summary"])
		assert.Equal(t, 0.9, doc["score"])
	})

	t.Run("plain text wrapped", func(t *testing.T) {
		doc := decodeRunnerResult("just some prose")
		assert.Equal(t, map[string]interface{}{"text": "just some prose"}, doc)
	})

	t.Run("top-level array wrapped", func(t *testing.T) {
		doc := decodeRunnerResult(`[1,2,3]`)
		assert.Equal(t, map[string]interface{}{"text": "[1,2,3]"}, doc)
	})
}
