package models

import "time"

// Provenance event types.
const (
	ProvenanceLLMCall     = "llm_call"
	ProvenanceToolCall    = "tool_call"
	ProvenanceError       = "error"
	ProvenanceStateChange = "state_change"
	ProvenanceDispatch    = "dispatch"
	ProvenanceWebhook     = "webhook"
)

// LLMCallMeta describes one model invocation. Prompt content is stored as a
// 16-hex SHA-256 prefix, never verbatim, unless the run has debug set.
type LLMCallMeta struct {
	Model            string  `json:"model"`
	PromptHash       string  `json:"prompt_hash,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
	DurationMs       int64   `json:"duration_ms,omitempty"`
	Effort           string  `json:"effort,omitempty"`
}

// ToolCallMeta describes one tool invocation.
type ToolCallMeta struct {
	Name                string `json:"name"`
	Version             string `json:"version,omitempty"`
	ArgsHash            string `json:"args_hash,omitempty"`
	ResultHash          string `json:"result_hash,omitempty"`
	SideEffectCommitted bool   `json:"side_effect_committed,omitempty"`
	DurationMs          int64  `json:"duration_ms,omitempty"`
}

// ErrorMeta describes an error event.
type ErrorMeta struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProvenanceStats aggregates records over a time window.
type ProvenanceStats struct {
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	CountsByType map[string]int `json:"counts_by_type"`
	TotalCost    float64        `json:"total_cost"`
	TotalTokens  int            `json:"total_tokens"`
	TotalRecords int            `json:"total_records"`
}
