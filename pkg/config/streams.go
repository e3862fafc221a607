package config

import "time"

// StreamsConfig contains stream hub and connection keepalive configuration.
type StreamsConfig struct {
	// SubscriberBuffer is the per-subscriber event channel capacity.
	SubscriberBuffer int `yaml:"subscriber_buffer"`

	// ReplayBuffer is how many events per run are kept for late subscribers.
	ReplayBuffer int `yaml:"replay_buffer"`

	// SSEKeepalive is the interval between SSE comment frames.
	SSEKeepalive time.Duration `yaml:"sse_keepalive"`

	// WSPingInterval is the interval between WebSocket server pings.
	WSPingInterval time.Duration `yaml:"ws_ping_interval"`

	// WSIdleTimeout disconnects WebSocket clients silent for this long.
	WSIdleTimeout time.Duration `yaml:"ws_idle_timeout"`

	// SyncWait is how long a synchronous execute call waits for the run
	// to finish before falling back to the async 202 response.
	SyncWait time.Duration `yaml:"sync_wait"`
}

// DefaultStreamsConfig returns the built-in stream defaults.
func DefaultStreamsConfig() *StreamsConfig {
	return &StreamsConfig{
		SubscriberBuffer: 64,
		ReplayBuffer:     256,
		SSEKeepalive:     15 * time.Second,
		WSPingInterval:   30 * time.Second,
		WSIdleTimeout:    60 * time.Second,
		SyncWait:         30 * time.Second,
	}
}
