// Package queue provides the fair tenant scheduler and the worker pool that
// drains it.
package queue

import (
	"context"
	"time"
)

// Item is one queued run. Workers receive Items and hand them to the
// Executor, which loads the authoritative job record by ID.
type Item struct {
	ID         string
	TenantID   string
	AgentID    string
	Priority   int
	EnqueuedAt time.Time
}

// Executor processes a dequeued item end to end: claiming the job, running
// the agent, writing the terminal status, and emitting events. The worker
// only handles scheduling concerns (timeout context, cancel registration,
// quota release).
type Executor interface {
	Execute(ctx context.Context, item *Item) error
}

// TenantStat reports queue state for one tenant.
type TenantStat struct {
	Pending          int   `json:"pending"`
	Active           int   `json:"active"`
	Processed        int64 `json:"processed"`
	OldestPendingAge int64 `json:"oldest_pending_age_ms"`
}

// Stats is a point-in-time snapshot of the scheduler.
type Stats struct {
	TotalPending   int                   `json:"total_pending"`
	TotalProcessed int64                 `json:"total_processed"`
	Bands          map[int]int           `json:"bands"`
	Tenants        map[string]TenantStat `json:"tenants"`
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveRuns    int            `json:"active_runs"`
	QueueDepth    int            `json:"queue_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentRunID  string    `json:"current_run_id,omitempty"`
	RunsProcessed int       `json:"runs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)
