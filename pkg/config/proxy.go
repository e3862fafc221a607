package config

import "time"

// RetryConfig controls outbound retry behaviour for transient upstream
// failures. Used as the default for agents that do not override it.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	Multiplier        float64       `yaml:"multiplier"`
	RetryableStatuses []int         `yaml:"retryable_statuses,omitempty"`
}

// ProxyConfig contains external agent registry and proxy configuration.
// Per-agent settings in the registration record override these defaults.
type ProxyConfig struct {
	// ConnectTimeout bounds connection establishment and health probes.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// RequestTimeout bounds one execute round trip.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxConcurrency caps simultaneous in-flight requests per agent.
	MaxConcurrency int `yaml:"max_concurrency"`

	// HealthCheckInterval is how often each agent's health endpoint is
	// probed. Zero disables periodic checks.
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// HealthLatencyThreshold separates healthy from degraded on a 2xx.
	HealthLatencyThreshold time.Duration `yaml:"health_latency_threshold"`

	// Circuit breaker: trips when the request window reaches
	// CircuitMinRequests and the error rate exceeds CircuitErrorRate.
	CircuitMinRequests  int           `yaml:"circuit_min_requests"`
	CircuitErrorRate    float64       `yaml:"circuit_error_rate"`
	CircuitResetTimeout time.Duration `yaml:"circuit_reset_timeout"`

	// Retry is the default retry policy.
	Retry RetryConfig `yaml:"retry"`

	// StreamChunkSize is the token size used when bridging a
	// non-streaming upstream response to a streaming client.
	StreamChunkSize int `yaml:"stream_chunk_size"`
}

// DefaultProxyConfig returns the built-in proxy defaults.
func DefaultProxyConfig() *ProxyConfig {
	return &ProxyConfig{
		ConnectTimeout:         10 * time.Second,
		RequestTimeout:         120 * time.Second,
		MaxConcurrency:         10,
		HealthCheckInterval:    30 * time.Second,
		HealthLatencyThreshold: 5 * time.Second,
		CircuitMinRequests:     5,
		CircuitErrorRate:       0.5,
		CircuitResetTimeout:    30 * time.Second,
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelay:      500 * time.Millisecond,
			MaxDelay:          10 * time.Second,
			Multiplier:        2.0,
			RetryableStatuses: []int{408, 429, 500, 502, 503, 504},
		},
		StreamChunkSize: 64,
	}
}
