package config

import "time"

// TenantQuotaConfig holds the three admission limits applied per tenant.
// A zero or negative value disables that limit.
type TenantQuotaConfig struct {
	// MaxConcurrent caps in-flight runs; enforced at dequeue.
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxPending caps queued-but-unstarted jobs; enforced at enqueue.
	MaxPending int `yaml:"max_pending"`

	// MaxPerWindow caps admitted enqueues per sliding rate window.
	MaxPerWindow int `yaml:"max_per_window"`
}

// QueueConfig contains scheduler and worker pool configuration.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines draining the queue.
	WorkerCount int `yaml:"worker_count"`

	// RunTimeout is the maximum time a single job may execute.
	RunTimeout time.Duration `yaml:"run_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active runs
	// to complete during shutdown. Should match RunTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// RateWindow is the span of the sliding window behind MaxPerWindow.
	RateWindow time.Duration `yaml:"rate_window"`

	// DefaultQuotas applies to every tenant without an override.
	DefaultQuotas TenantQuotaConfig `yaml:"default_quotas"`

	// TenantQuotas overrides limits for specific tenants.
	TenantQuotas map[string]TenantQuotaConfig `yaml:"tenant_quotas,omitempty"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		RunTimeout:              10 * time.Minute,
		GracefulShutdownTimeout: 10 * time.Minute,
		RateWindow:              time.Minute,
		DefaultQuotas: TenantQuotaConfig{
			MaxConcurrent: 5,
			MaxPending:    50,
			MaxPerWindow:  120,
		},
	}
}
