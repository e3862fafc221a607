package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openagora/agora/ent"
	entjob "github.com/openagora/agora/ent/job"
	"github.com/openagora/agora/pkg/models"
)

// SyncResult is the outcome of a synchronous execution request. TimedOut
// reports that the run is still going and the caller should fall back to
// polling the job.
type SyncResult struct {
	Job      *ent.Job
	Status   string
	Output   map[string]interface{}
	Cost     *float64
	Error    *models.ErrorPayload
	Warning  *models.DeprecationWarning
	TimedOut bool
}

// ExecuteSync submits a job and blocks until it reaches a terminal state or
// the wait budget runs out. The stream subscription is registered before
// the job becomes visible to the queue, so the terminal event cannot be
// missed however fast the run finishes.
func (o *Orchestrator) ExecuteSync(ctx context.Context, req models.CreateJobRequest) (*SyncResult, error) {
	clientID := "sync-" + uuid.NewString()

	var (
		ch        <-chan models.StreamEvent
		cancelSub func()
	)
	res, err := o.submit(ctx, req, func(jobID string) {
		ch, cancelSub = o.deps.Hub.Subscribe(jobID, clientID)
	})
	if err != nil {
		return nil, err
	}

	if !res.Created {
		// Idempotent replay. Finished jobs answer from the record;
		// in-flight jobs attach to the live stream, replay included.
		if isTerminal(res.Job.Status) {
			return syncResultFromJob(res.Job, res.Warning), nil
		}
		ch, cancelSub = o.deps.Hub.Subscribe(res.Job.ID, clientID)
	}
	defer cancelSub()

	return o.waitTerminal(ctx, res, ch)
}

func (o *Orchestrator) waitTerminal(ctx context.Context, res *SubmitResult, ch <-chan models.StreamEvent) (*SyncResult, error) {
	timer := time.NewTimer(o.syncWait(res.listing))
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				// The stream closed without a terminal event passing
				// through this subscriber; the record has the answer.
				job, err := o.deps.Jobs.GetByID(ctx, res.Job.ID)
				if err != nil {
					return nil, err
				}
				return syncResultFromJob(job, res.Warning), nil
			}
			switch ev.Type {
			case models.EventDone:
				out := &SyncResult{Job: res.Job, Warning: res.Warning}
				if p, ok := ev.Data.(models.DonePayload); ok {
					out.Status = p.Status
					if m, ok := p.Output.(map[string]interface{}); ok {
						out.Output = m
					}
					out.Cost = p.Cost
				}
				if job, err := o.deps.Jobs.GetByID(ctx, res.Job.ID); err == nil {
					out.Job = job
				}
				return out, nil
			case models.EventError:
				out := &SyncResult{
					Job:     res.Job,
					Status:  string(entjob.StatusFailed),
					Warning: res.Warning,
				}
				if p, ok := ev.Data.(models.ErrorPayload); ok {
					out.Error = &p
				}
				if job, err := o.deps.Jobs.GetByID(ctx, res.Job.ID); err == nil {
					out.Job = job
					out.Status = string(job.Status)
				}
				return out, nil
			}
		case <-timer.C:
			job := res.Job
			if fresh, err := o.deps.Jobs.GetByID(ctx, res.Job.ID); err == nil {
				job = fresh
			}
			return &SyncResult{
				Job:      job,
				Status:   string(job.Status),
				Warning:  res.Warning,
				TimedOut: true,
			}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ExecuteStreaming submits a job and returns its event stream along with
// the subscription's release func. For an idempotent replay of a finished
// job, the returned channel carries a terminal event synthesized from the
// record and is already closed.
func (o *Orchestrator) ExecuteStreaming(ctx context.Context, req models.CreateJobRequest) (*SubmitResult, <-chan models.StreamEvent, func(), error) {
	clientID := "stream-" + uuid.NewString()

	var (
		ch        <-chan models.StreamEvent
		cancelSub func()
	)
	res, err := o.submit(ctx, req, func(jobID string) {
		ch, cancelSub = o.deps.Hub.Subscribe(jobID, clientID)
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if !res.Created {
		if isTerminal(res.Job.Status) {
			return res, replayTerminal(res.Job), func() {}, nil
		}
		ch, cancelSub = o.deps.Hub.Subscribe(res.Job.ID, clientID)
	}
	return res, ch, cancelSub, nil
}

// Subscribe attaches to a run's live stream, replay included. When the run
// already left the hub, the job record supplies a synthesized terminal
// event so late subscribers never hang on a finished job.
func (o *Orchestrator) Subscribe(ctx context.Context, jobID, tenantID string, admin bool) (<-chan models.StreamEvent, func(), error) {
	job, err := o.deps.Jobs.Get(ctx, jobID, tenantID, admin)
	if err != nil {
		return nil, nil, err
	}
	if isTerminal(job.Status) {
		return replayTerminal(job), func() {}, nil
	}
	ch, cancelSub := o.deps.Hub.Subscribe(job.ID, "sub-"+uuid.NewString())
	return ch, cancelSub, nil
}

// syncWait derives the wait budget: the listing's execution ceiling when it
// has one, the configured default otherwise.
func (o *Orchestrator) syncWait(l *ent.Listing) time.Duration {
	if l != nil && l.MaxDurationMs != nil && *l.MaxDurationMs > 0 {
		return time.Duration(*l.MaxDurationMs) * time.Millisecond
	}
	return o.deps.StreamsConfig.SyncWait
}

func isTerminal(status entjob.Status) bool {
	switch status {
	case entjob.StatusCompleted, entjob.StatusFailed, entjob.StatusCancelled:
		return true
	}
	return false
}

// syncResultFromJob answers a synchronous request from the job record.
func syncResultFromJob(job *ent.Job, warning *models.DeprecationWarning) *SyncResult {
	r := &SyncResult{
		Job:     job,
		Status:  string(job.Status),
		Output:  job.Output,
		Cost:    job.Cost,
		Warning: warning,
	}
	if job.Status == entjob.StatusFailed {
		r.Error = &models.ErrorPayload{
			Message: deref(job.ErrorMessage),
			Code:    deref(job.ErrorCode),
		}
	}
	return r
}

// replayTerminal synthesizes the closing event for a job that finished
// before this subscriber arrived.
func replayTerminal(job *ent.Job) <-chan models.StreamEvent {
	ev := models.StreamEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RequestID: job.ID,
	}
	if job.Status == entjob.StatusFailed {
		ev.Type = models.EventError
		ev.Data = models.ErrorPayload{
			Message: deref(job.ErrorMessage),
			Code:    deref(job.ErrorCode),
		}
	} else {
		ev.Type = models.EventDone
		ev.Data = models.DonePayload{
			Status: string(job.Status),
			Output: job.Output,
			Cost:   job.Cost,
		}
	}

	ch := make(chan models.StreamEvent, 1)
	ch <- ev
	close(ch)
	return ch
}
