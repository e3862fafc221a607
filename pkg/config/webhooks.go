package config

import "time"

// WebhooksConfig controls terminal-transition webhook delivery.
type WebhooksConfig struct {
	// Workers is the number of delivery goroutines.
	Workers int `yaml:"workers"`

	// QueueSize is the delivery queue capacity; deliveries beyond it are
	// dropped with a warning rather than blocking job completion.
	QueueSize int `yaml:"queue_size"`

	// MaxAttempts is how many times one delivery is tried.
	MaxAttempts int `yaml:"max_attempts"`

	// Timeout bounds each delivery attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultWebhooksConfig returns the built-in webhook defaults.
func DefaultWebhooksConfig() *WebhooksConfig {
	return &WebhooksConfig{
		Workers:     2,
		QueueSize:   256,
		MaxAttempts: 3,
		Timeout:     10 * time.Second,
	}
}
