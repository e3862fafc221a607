package models

import "time"

// RegisterVersionRequest creates or replaces an artifact's version record.
// Also the shape of version seeds in the configuration file.
type RegisterVersionRequest struct {
	ArtifactID           string `json:"artifact_id" yaml:"artifact_id"`
	Kind                 string `json:"kind" yaml:"kind"` // "agent" or "tool"
	Version              string `json:"version" yaml:"version"`
	MinCompatibleVersion string `json:"min_compatible_version,omitempty" yaml:"min_compatible_version,omitempty"`
}

// DeprecateRequest moves an artifact to deprecated.
type DeprecateRequest struct {
	Reason        string     `json:"reason"`
	ReplacementID string     `json:"replacement_id,omitempty"`
	SunsetDate    *time.Time `json:"sunset_date,omitempty"`
}

// DeprecationWarning is attached to successful pre-use checks against a
// deprecated artifact.
type DeprecationWarning struct {
	ArtifactID    string     `json:"artifact_id"`
	Reason        string     `json:"reason,omitempty"`
	ReplacementID string     `json:"replacement_id,omitempty"`
	SunsetDate    *time.Time `json:"sunset_date,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
}

// CompatibilityResult reports whether a requested version can talk to the
// current artifact version.
type CompatibilityResult struct {
	ArtifactID  string   `json:"artifact_id"`
	Requested   string   `json:"requested"`
	Current     string   `json:"current"`
	Compatible  bool     `json:"compatible"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
