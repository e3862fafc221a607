package models

import "time"

// Streaming protocols an external agent may expose.
const (
	StreamProtocolSSE       = "sse"
	StreamProtocolWebSocket = "websocket"
	StreamProtocolChunked   = "chunked"
	StreamProtocolNone      = "none"
)

// Authentication methods for outbound calls to external agents.
const (
	AuthMethodNone   = "none"
	AuthMethodAPIKey = "api-key"
	AuthMethodBearer = "bearer"
	AuthMethodBasic  = "basic"
)

// Health states reported by the registry's health checker.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
	HealthUnknown   = "unknown"
)

// ExternalAgentConfig is the immutable registration record for a remote
// agent. It is carried both in YAML seed files and in the admin API, so
// fields are tagged for both encodings.
type ExternalAgentConfig struct {
	ID                  string         `json:"id" yaml:"id"`
	Name                string         `json:"name,omitempty" yaml:"name,omitempty"`
	Description         string         `json:"description,omitempty" yaml:"description,omitempty"`
	BaseURL             string         `json:"base_url" yaml:"base_url"`
	Endpoints           EndpointConfig `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	Streaming           string         `json:"streaming,omitempty" yaml:"streaming,omitempty"`
	Auth                AuthConfig     `json:"auth,omitempty" yaml:"auth,omitempty"`
	Retry               RetryPolicy    `json:"retry,omitempty" yaml:"retry,omitempty"`
	ConnectTimeout      time.Duration  `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	RequestTimeout      time.Duration  `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	MaxConcurrency      int            `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty"`
	HealthCheckInterval time.Duration  `json:"health_check_interval,omitempty" yaml:"health_check_interval,omitempty"`
	Enabled             *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// EndpointConfig holds the remote path for each operation, joined onto the
// agent's base URL.
type EndpointConfig struct {
	Execute string `json:"execute,omitempty" yaml:"execute,omitempty"`
	Stream  string `json:"stream,omitempty" yaml:"stream,omitempty"`
	Health  string `json:"health,omitempty" yaml:"health,omitempty"`
	Info    string `json:"info,omitempty" yaml:"info,omitempty"`
	Cancel  string `json:"cancel,omitempty" yaml:"cancel,omitempty"`
}

// AuthConfig describes how outbound requests authenticate. Header applies to
// the api-key method only and defaults to X-API-Key.
type AuthConfig struct {
	Method   string `json:"method,omitempty" yaml:"method,omitempty"`
	Header   string `json:"header,omitempty" yaml:"header,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// RetryPolicy controls proxy retries for transient upstream failures.
type RetryPolicy struct {
	MaxRetries        int           `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	InitialDelay      time.Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	MaxDelay          time.Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	Multiplier        float64       `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	RetryableStatuses []int         `json:"retryable_statuses,omitempty" yaml:"retryable_statuses,omitempty"`
}

// AgentSnapshot is a point-in-time, read-only view of one registered agent's
// runtime state, safe to hand to API responses.
type AgentSnapshot struct {
	ID             string     `json:"id"`
	Name           string     `json:"name,omitempty"`
	Enabled        bool       `json:"enabled"`
	Health         string     `json:"health"`
	LastChecked    *time.Time `json:"last_checked,omitempty"`
	ActiveRequests int        `json:"active_requests"`
	MaxConcurrency int        `json:"max_concurrency"`
	TotalRequests  int64      `json:"total_requests"`
	TotalErrors    int64      `json:"total_errors"`
	AvgResponseMs  float64    `json:"avg_response_ms"`
	CircuitBroken  bool       `json:"circuit_broken"`
	CircuitResetAt *time.Time `json:"circuit_reset_at,omitempty"`
	Available      bool       `json:"available"`
	Streaming      string     `json:"streaming,omitempty"`
}

// CapabilityCard is the self-description document an external agent serves
// from its info endpoint. All fields are optional; registration succeeds
// without one.
type CapabilityCard struct {
	Name         string                 `json:"name,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Version      string                 `json:"version,omitempty"`
	Capabilities []string               `json:"capabilities,omitempty"`
	InputSchema  map[string]interface{} `json:"input_schema,omitempty"`
	Pricing      map[string]interface{} `json:"pricing,omitempty"`
}

// AgentExecuteRequest is the outbound body POSTed to an external agent's
// execute endpoint.
type AgentExecuteRequest struct {
	Task      map[string]interface{} `json:"task"`
	Stream    bool                   `json:"stream"`
	Model     string                 `json:"model,omitempty"`
	Budget    *float64               `json:"budget,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id"`
}

// AgentExecuteResponse is the JSON body an external agent returns from a
// synchronous execute call.
type AgentExecuteResponse struct {
	Result interface{} `json:"result"`
	Usage  *UsageInfo  `json:"usage,omitempty"`
}

// UsageInfo reports resource consumption for one upstream call.
type UsageInfo struct {
	PromptTokens     int      `json:"prompt_tokens,omitempty"`
	CompletionTokens int      `json:"completion_tokens,omitempty"`
	DurationMs       int64    `json:"duration_ms,omitempty"`
	Cost             *float64 `json:"cost,omitempty"`
}
