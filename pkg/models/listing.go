package models

import "github.com/openagora/agora/ent"

// UpsertListingRequest creates or updates a marketplace listing.
type UpsertListingRequest struct {
	AgentID       string                 `json:"agent_id" yaml:"agent_id"`
	Name          string                 `json:"name" yaml:"name"`
	Description   string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Category      string                 `json:"category,omitempty" yaml:"category,omitempty"`
	Tier          string                 `json:"tier,omitempty" yaml:"tier,omitempty"`
	Tags          []string               `json:"tags,omitempty" yaml:"tags,omitempty"`
	InputSchema   map[string]interface{} `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	Capabilities  []string               `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Kind          string                 `json:"kind" yaml:"kind"` // "local" or "external"
	Featured      bool                   `json:"featured,omitempty" yaml:"featured,omitempty"`
	MaxDurationMs int64                  `json:"max_duration_ms,omitempty" yaml:"max_duration_ms,omitempty"`
}

// ListingFilters narrows a marketplace listing query.
type ListingFilters struct {
	Category string `json:"category,omitempty"`
	Tier     string `json:"tier,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Featured bool   `json:"featured,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ScoredListing is one discovery search hit.
type ScoredListing struct {
	Listing *ent.Listing `json:"listing"`
	Score   float64      `json:"score"`
}
