// Package schematype holds the JSON column types shared between the ent
// schemas and pkg/models. They live in this leaf package so the generated
// ent code can reference them without importing pkg/models, which itself
// imports the generated ent package; pkg/models re-exports them as aliases.
package schematype

import "time"

// Condition is a single attribute comparison. Attribute paths use dot
// notation for nested lookups, e.g. "subject.roles" or "resource.tier".
type Condition struct {
	Attribute string      `json:"attribute" yaml:"attribute"`
	Operator  string      `json:"operator" yaml:"operator"`
	Value     interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// ActionSet is the action allow/deny list of a policy. A "*" entry in
// Allowed matches every action.
type ActionSet struct {
	Allowed []string `json:"allowed" yaml:"allowed"`
	Denied  []string `json:"denied,omitempty" yaml:"denied,omitempty"`
}

// TimeRestrictions bounds when a policy applies. Hour windows support
// overnight ranges where StartHour > EndHour (e.g. 22 to 6).
type TimeRestrictions struct {
	ValidFrom  *time.Time `json:"valid_from,omitempty" yaml:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
	DaysOfWeek []int      `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"` // 0 = Sunday .. 6 = Saturday
	StartHour  *int       `json:"start_hour,omitempty" yaml:"start_hour,omitempty"`
	EndHour    *int       `json:"end_hour,omitempty" yaml:"end_hour,omitempty"`
	Timezone   string     `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// IPRestrictions holds CIDR allow/block lists. The block list is checked
// first; a non-empty allow list then requires a match.
type IPRestrictions struct {
	Allowed []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Blocked []string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

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
