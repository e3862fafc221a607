package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openagora/agora/ent"
	"github.com/openagora/agora/ent/job"
)

// RecoverStartupOrphans performs a one-time sweep before the worker pool
// begins processing. Jobs left processing by a previous process are failed
// with code "orphaned" (no worker can still be running them); jobs that were
// pending survive the restart and are restored into the scheduler in their
// original arrival order.
func RecoverStartupOrphans(ctx context.Context, client *ent.Client, scheduler *Scheduler) error {
	if err := failOrphanedRuns(ctx, client); err != nil {
		return err
	}
	return restorePendingJobs(ctx, client, scheduler)
}

func failOrphanedRuns(ctx context.Context, client *ent.Client) error {
	orphans, err := client.Job.Query().
		Where(job.StatusEQ(job.StatusProcessing)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orphaned jobs: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("Found orphaned jobs from previous run", "count", len(orphans))

	now := time.Now()
	for _, j := range orphans {
		err := j.Update().
			SetStatus(job.StatusFailed).
			SetCompletedAt(now).
			SetErrorCode("orphaned").
			SetErrorMessage("process restarted while job was processing").
			Exec(ctx)
		if err != nil {
			slog.Error("Failed to mark orphaned job", "job_id", j.ID, "error", err)
			continue
		}
		slog.Info("Orphaned job failed", "job_id", j.ID)
	}
	return nil
}

func restorePendingJobs(ctx context.Context, client *ent.Client, scheduler *Scheduler) error {
	pending, err := client.Job.Query().
		Where(job.StatusEQ(job.StatusPending)).
		Order(ent.Asc(job.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, j := range pending {
		scheduler.Restore(&Item{
			ID:         j.ID,
			TenantID:   j.TenantID,
			AgentID:    j.AgentID,
			Priority:   j.Priority,
			EnqueuedAt: j.CreatedAt,
		})
	}

	slog.Info("Restored pending jobs into the queue", "count", len(pending))
	return nil
}
