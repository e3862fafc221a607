package config

import "time"

// VersioningConfig controls the artifact lifecycle registry.
type VersioningConfig struct {
	// SunsetPeriodDays is the default grace period granted when an
	// artifact is deprecated without an explicit sunset date.
	SunsetPeriodDays int `yaml:"sunset_period_days"`

	// SweepInterval is how often deprecated artifacts past their sunset
	// date are batch-transitioned to sunset.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DefaultVersioningConfig returns the built-in versioning defaults.
func DefaultVersioningConfig() *VersioningConfig {
	return &VersioningConfig{
		SunsetPeriodDays: 90,
		SweepInterval:    time.Hour,
	}
}
