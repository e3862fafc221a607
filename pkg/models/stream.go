package models

// Stream event types carried end-to-end from producers to SSE/WebSocket
// subscribers.
const (
	EventStart      = "start"
	EventToken      = "token"
	EventChunk      = "chunk"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventThinking   = "thinking"
	EventProgress   = "progress"
	EventError      = "error"
	EventDone       = "done"
	EventMetadata   = "metadata"
)

// StreamEvent is the envelope delivered to every subscriber of a run.
// Seq is assigned at publication time and is monotonic per run.
type StreamEvent struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"` // RFC3339Nano
	Seq       int64       `json:"seq"`
	RequestID string      `json:"request_id,omitempty"`
}

// StartPayload announces that a run began executing.
type StartPayload struct {
	JobID    string `json:"job_id"`
	AgentID  string `json:"agent_id"`
	Provider string `json:"provider,omitempty"`
}

// TokenPayload carries one incremental text fragment.
type TokenPayload struct {
	Text string `json:"text"`
}

// ChunkPayload carries one opaque output chunk.
type ChunkPayload struct {
	Data interface{} `json:"data"`
}

// ToolCallPayload announces a tool invocation by the executing agent.
type ToolCallPayload struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// ToolResultPayload carries the outcome of a tool invocation.
type ToolResultPayload struct {
	Name   string      `json:"name"`
	Result interface{} `json:"result,omitempty"`
}

// ThinkingPayload carries intermediate reasoning text.
type ThinkingPayload struct {
	Text string `json:"text"`
}

// ProgressPayload reports percent complete for the run.
type ProgressPayload struct {
	Percent int    `json:"percent"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorPayload reports a failure; the stream closes after it.
type ErrorPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// DonePayload closes a run's stream.
type DonePayload struct {
	Status string      `json:"status"`
	Output interface{} `json:"output,omitempty"`
	Cost   *float64    `json:"cost,omitempty"`
}

// MetadataPayload carries auxiliary run information (usage, model, timing).
type MetadataPayload struct {
	Fields map[string]interface{} `json:"fields"`
}

// WebSocket client message types.
const (
	WSClientExecute     = "execute"
	WSClientCancel      = "cancel"
	WSClientSubscribe   = "subscribe"
	WSClientUnsubscribe = "unsubscribe"
	WSClientPing        = "ping"
)

// WebSocket server message types.
const (
	WSServerAck   = "ack"
	WSServerEvent = "event"
	WSServerError = "error"
	WSServerPong  = "pong"
)

// WSClientMessage is one JSON frame from a WebSocket client. ID names the
// run for cancel/subscribe/unsubscribe; AgentID and Input apply to execute.
type WSClientMessage struct {
	Type    string                 `json:"type"`
	ID      string                 `json:"id,omitempty"`
	AgentID string                 `json:"agent_id,omitempty"`
	Input   map[string]interface{} `json:"input,omitempty"`
}

// WSServerMessage is one JSON frame sent to a WebSocket client.
type WSServerMessage struct {
	Type      string       `json:"type"`
	ID        string       `json:"id,omitempty"`
	Payload   *StreamEvent `json:"payload,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp string       `json:"timestamp"`
}
