package config

import "time"

// PolicyConfig controls the policy engine.
type PolicyConfig struct {
	// CacheRefreshInterval is how often the in-memory policy cache is
	// reloaded from the store. Mutations through the service API refresh
	// it immediately; this catches out-of-band changes.
	CacheRefreshInterval time.Duration `yaml:"cache_refresh_interval"`
}

// DefaultPolicyConfig returns the built-in policy engine defaults.
func DefaultPolicyConfig() *PolicyConfig {
	return &PolicyConfig{
		CacheRefreshInterval: 5 * time.Minute,
	}
}
