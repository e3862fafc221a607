package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// JobRetentionDays is how many days terminal jobs are kept before the
	// cleanup sweep deletes them.
	JobRetentionDays int `yaml:"job_retention_days"`

	// ProvenanceRetentionDays bounds the age of provenance records.
	ProvenanceRetentionDays int `yaml:"provenance_retention_days"`

	// AuditRetentionDays bounds the age of policy audit records.
	AuditRetentionDays int `yaml:"audit_retention_days"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		JobRetentionDays:        90,
		ProvenanceRetentionDays: 365,
		AuditRetentionDays:      180,
		CleanupInterval:         12 * time.Hour,
	}
}
