package models

import (
	"time"

	"github.com/openagora/agora/ent"
)

// CreateJobRequest contains the fields for creating a job record.
type CreateJobRequest struct {
	AgentID             string                 `json:"agent_id"`
	TenantID            string                 `json:"tenant_id"`
	UserID              string                 `json:"user_id,omitempty"`
	Input               map[string]interface{} `json:"input"`
	Priority            int                    `json:"priority,omitempty"`
	WebhookURL          string                 `json:"webhook_url,omitempty"`
	IdempotencyKey      string                 `json:"idempotency_key,omitempty"`
	TraceID             string                 `json:"trace_id,omitempty"`
	Debug               bool                   `json:"debug,omitempty"`
	EstimatedDurationMs int64                  `json:"estimated_duration_ms,omitempty"`

	// AgentVersion pins the agent version the caller was built against.
	// Submissions are rejected when it falls outside the registered
	// compatibility window.
	AgentVersion string `json:"agent_version,omitempty"`

	// ClientIP is filled by the transport layer for policy evaluation;
	// it is never part of the request body.
	ClientIP string `json:"-"`
}

// JobFilters narrows a tenant's job listing.
type JobFilters struct {
	Status  string     `json:"status,omitempty"`
	AgentID string     `json:"agent_id,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
	Until   *time.Time `json:"until,omitempty"`
	Order   string     `json:"order,omitempty"` // "asc" (oldest first) or "desc" (default)
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
}

// JobListResponse contains one page of jobs plus paging metadata.
type JobListResponse struct {
	Jobs       []*ent.Job `json:"jobs"`
	TotalCount int        `json:"total_count"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
