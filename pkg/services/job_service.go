package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openagora/agora/ent"
	"github.com/openagora/agora/ent/job"
	"github.com/openagora/agora/pkg/models"
)

// writeTimeout bounds critical job-state writes. Transitions use a detached
// context so a dead HTTP request cannot lose a state change.
const writeTimeout = 5 * time.Second

// JobService manages the durable job lifecycle. State transitions are
// guarded conditional updates: the returned bool reports whether the
// transition won (false means another writer got there first or the job is
// already terminal).
type JobService struct {
	client *ent.Client
}

// NewJobService creates a new JobService.
func NewJobService(client *ent.Client) *JobService {
	return &JobService{client: client}
}

// Create persists a new pending job. When the request carries an idempotency
// key that already exists for the tenant, the original job is returned with
// created=false instead of an error.
func (s *JobService) Create(httpCtx context.Context, req models.CreateJobRequest) (*ent.Job, bool, error) {
	if req.AgentID == "" {
		return nil, false, NewValidationError("agent_id", "required")
	}
	if req.TenantID == "" {
		return nil, false, NewValidationError("tenant_id", "required")
	}
	if req.Input == nil {
		return nil, false, NewValidationError("input", "required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	builder := s.client.Job.Create().
		SetID(uuid.New().String()).
		SetAgentID(req.AgentID).
		SetTenantID(req.TenantID).
		SetInput(req.Input).
		SetTraceID(traceID).
		SetDebug(req.Debug)

	if req.UserID != "" {
		builder.SetUserID(req.UserID)
	}
	if req.Priority > 0 {
		builder.SetPriority(req.Priority)
	}
	if req.WebhookURL != "" {
		builder.SetWebhookURL(req.WebhookURL)
	}
	if req.IdempotencyKey != "" {
		builder.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.EstimatedDurationMs > 0 {
		builder.SetEstimatedDurationMs(req.EstimatedDurationMs)
	}

	created, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) && req.IdempotencyKey != "" {
			existing, lookupErr := s.client.Job.Query().
				Where(
					job.TenantIDEQ(req.TenantID),
					job.IdempotencyKeyEQ(req.IdempotencyKey),
				).
				Only(ctx)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("failed to load job for idempotency key: %w", lookupErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create job: %w", err)
	}

	return created, true, nil
}

// Get returns one job scoped to the requesting tenant. Admins see every
// tenant's jobs.
func (s *JobService) Get(ctx context.Context, id, tenantID string, admin bool) (*ent.Job, error) {
	j, err := s.client.Job.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if !admin && j.TenantID != tenantID {
		return nil, ErrPermissionDenied
	}
	return j, nil
}

// GetByID returns one job without tenant scoping, for internal callers that
// already hold a claim on it.
func (s *JobService) GetByID(ctx context.Context, id string) (*ent.Job, error) {
	j, err := s.client.Job.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// List returns one page of the tenant's jobs, newest first unless the filter
// asks for ascending order.
func (s *JobService) List(ctx context.Context, tenantID string, filters models.JobFilters) (*models.JobListResponse, error) {
	query := s.client.Job.Query().
		Where(job.TenantIDEQ(tenantID))

	if filters.Status != "" {
		query = query.Where(job.StatusEQ(job.Status(filters.Status)))
	}
	if filters.AgentID != "" {
		query = query.Where(job.AgentIDEQ(filters.AgentID))
	}
	if filters.Since != nil {
		query = query.Where(job.CreatedAtGTE(*filters.Since))
	}
	if filters.Until != nil {
		query = query.Where(job.CreatedAtLT(*filters.Until))
	}

	totalCount, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	order := ent.Desc(job.FieldCreatedAt)
	if filters.Order == "asc" {
		order = ent.Asc(job.FieldCreatedAt)
	}

	jobs, err := query.
		Limit(limit).
		Offset(offset).
		Order(order).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return &models.JobListResponse{
		Jobs:       jobs,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// MarkProcessing claims a pending job for a worker, recording the claim time
// and the dispatch target. Returns false when the job is no longer pending.
func (s *JobService) MarkProcessing(_ context.Context, id, workerID, provider string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	update := s.client.Job.Update().
		Where(
			job.IDEQ(id),
			job.StatusEQ(job.StatusPending),
		).
		SetStatus(job.StatusProcessing).
		SetStartedAt(time.Now()).
		SetWorkerID(workerID)

	if provider != "" {
		update = update.SetProvider(provider)
	}

	count, err := update.Save(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark job processing: %w", err)
	}
	return count > 0, nil
}

// UpdateProgress raises a running job's progress. The value is clamped to
// [current, 100]; regressions and terminal jobs report false without
// mutating anything.
func (s *JobService) UpdateProgress(_ context.Context, id string, percent int) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	count, err := s.client.Job.Update().
		Where(
			job.IDEQ(id),
			job.StatusEQ(job.StatusProcessing),
			job.ProgressLTE(percent),
		).
		SetProgress(percent).
		Save(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update job progress: %w", err)
	}
	return count > 0, nil
}

// MarkCompleted finishes a processing job: output frozen, progress forced to
// 100, completion time set. Returns false when the job is not processing, so
// a repeat call cannot overwrite the first outcome.
func (s *JobService) MarkCompleted(_ context.Context, id string, output map[string]interface{}, cost *float64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	update := s.client.Job.Update().
		Where(
			job.IDEQ(id),
			job.StatusEQ(job.StatusProcessing),
		).
		SetStatus(job.StatusCompleted).
		SetProgress(100).
		SetCompletedAt(time.Now())

	if output != nil {
		update = update.SetOutput(output)
	}
	if cost != nil {
		update = update.SetCost(*cost)
	}

	count, err := update.Save(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark job completed: %w", err)
	}
	return count > 0, nil
}

// MarkFailed fails a processing job with an error message and optional code.
func (s *JobService) MarkFailed(_ context.Context, id, message, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	update := s.client.Job.Update().
		Where(
			job.IDEQ(id),
			job.StatusEQ(job.StatusProcessing),
		).
		SetStatus(job.StatusFailed).
		SetCompletedAt(time.Now()).
		SetErrorMessage(message)

	if code != "" {
		update = update.SetErrorCode(code)
	}

	count, err := update.Save(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark job failed: %w", err)
	}
	return count > 0, nil
}

// CancelPending cancels a job that is still waiting in the queue.
func (s *JobService) CancelPending(_ context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	count, err := s.client.Job.Update().
		Where(
			job.IDEQ(id),
			job.StatusEQ(job.StatusPending),
		).
		SetStatus(job.StatusCancelled).
		SetCompletedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to cancel pending job: %w", err)
	}
	return count > 0, nil
}

// MarkCancelled cancels a job from pending or processing. Used by workers
// when a run's context is cancelled mid-flight.
func (s *JobService) MarkCancelled(_ context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	count, err := s.client.Job.Update().
		Where(
			job.IDEQ(id),
			job.StatusIn(job.StatusPending, job.StatusProcessing),
		).
		SetStatus(job.StatusCancelled).
		SetCompletedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}
	return count > 0, nil
}

// Delete removes a job record outright. Only used to roll back a freshly
// created row when queue admission rejects it; settled jobs are never
// deleted here (retention cleanup owns that).
func (s *JobService) Delete(_ context.Context, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.client.Job.DeleteOneID(id).Exec(ctx); err != nil && !ent.IsNotFound(err) {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// PurgeTerminal deletes settled jobs older than the retention period.
// Pending and processing jobs are never touched regardless of age.
func (s *JobService) PurgeTerminal(_ context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention_days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	// Use background context with timeout
	purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.Job.Delete().
		Where(
			job.StatusIn(job.StatusCompleted, job.StatusFailed, job.StatusCancelled),
			job.CompletedAtLT(cutoff),
		).
		Exec(purgeCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge terminal jobs: %w", err)
	}

	return count, nil
}
