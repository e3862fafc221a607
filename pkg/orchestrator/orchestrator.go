// Package orchestrator is the single entry point for execution. It runs the
// admission ladder (listing, input schema, policy, version, availability),
// writes the job record, admits it to the fair queue, and implements the
// queue executor that drives every run to a terminal state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openagora/agora/ent"
	entjob "github.com/openagora/agora/ent/job"
	entlisting "github.com/openagora/agora/ent/listing"
	"github.com/openagora/agora/pkg/agents"
	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/policy"
	"github.com/openagora/agora/pkg/provenance"
	"github.com/openagora/agora/pkg/proxy"
	"github.com/openagora/agora/pkg/queue"
	"github.com/openagora/agora/pkg/registry"
	"github.com/openagora/agora/pkg/services"
	"github.com/openagora/agora/pkg/streams"
	"github.com/openagora/agora/pkg/tokenizer"
	"github.com/openagora/agora/pkg/webhooks"
)

// Deps bundles the components the orchestrator coordinates.
type Deps struct {
	Jobs     *services.JobService
	Listings *services.ListingService
	Versions *services.VersionService
	Policies *policy.Engine

	Agents   *agents.Registry
	Registry *registry.Registry
	Proxy    *proxy.Proxy

	Scheduler  *queue.Scheduler
	Hub        *streams.Hub
	Tokenizer  *tokenizer.Service
	Provenance *provenance.Service
	Webhooks   *webhooks.Dispatcher

	QueueConfig     *config.QueueConfig
	StreamsConfig   *config.StreamsConfig
	TokenizerConfig *config.TokenizerConfig
}

// Orchestrator coordinates submissions end to end and owns the worker pool
// that drains the queue.
type Orchestrator struct {
	deps    Deps
	pool    *queue.WorkerPool
	schemas *schemaCache
}

// New creates the orchestrator and its worker pool. Start launches the
// workers.
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		deps:    deps,
		schemas: newSchemaCache(),
	}
	o.pool = queue.NewWorkerPool(deps.Scheduler, deps.QueueConfig, o)
	return o
}

// Start launches the worker pool.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.pool.Start(ctx)
}

// Stop drains the worker pool, letting in-flight runs finish.
func (o *Orchestrator) Stop() {
	o.pool.Stop()
}

// QueueStats snapshots the fair scheduler.
func (o *Orchestrator) QueueStats() queue.Stats {
	return o.deps.Scheduler.Stats()
}

// PoolHealth snapshots the worker pool.
func (o *Orchestrator) PoolHealth() *queue.PoolHealth {
	return o.pool.Health()
}

// SubmitResult reports an accepted submission. Warning is set when the
// target agent is deprecated but still runnable. Created is false when an
// idempotency key matched an earlier submission.
type SubmitResult struct {
	Job     *ent.Job
	Created bool
	Warning *models.DeprecationWarning

	listing *ent.Listing
}

// Submit runs the admission ladder and enqueues a new job. A replayed
// idempotent submission returns the original job without enqueueing
// anything.
func (o *Orchestrator) Submit(ctx context.Context, req models.CreateJobRequest) (*SubmitResult, error) {
	return o.submit(ctx, req, nil)
}

// submit is the shared admission path. beforeEnqueue, when set, runs after
// the job record exists but before the queue can dispatch it; the streaming
// entry points subscribe there so no event is missed.
func (o *Orchestrator) submit(ctx context.Context, req models.CreateJobRequest, beforeEnqueue func(jobID string)) (*SubmitResult, error) {
	listing, err := o.deps.Listings.Get(ctx, req.AgentID)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			return nil, fmt.Errorf("%w: '%s'", services.ErrAgentNotFound, req.AgentID)
		}
		return nil, err
	}

	if err := o.validateInput(listing, req.Input); err != nil {
		return nil, err
	}
	if err := o.authorize(ctx, &req, listing); err != nil {
		return nil, err
	}

	warning, err := o.deps.Versions.CheckBeforeUse(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if err := o.checkPinnedVersion(ctx, &req); err != nil {
		return nil, err
	}

	if err := o.checkAvailable(listing); err != nil {
		return nil, err
	}

	job, created, err := o.deps.Jobs.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if !created {
		return &SubmitResult{Job: job, Warning: warning, listing: listing}, nil
	}

	if beforeEnqueue != nil {
		beforeEnqueue(job.ID)
	}

	if err := o.deps.Scheduler.Enqueue(&queue.Item{
		ID:         job.ID,
		TenantID:   job.TenantID,
		AgentID:    job.AgentID,
		Priority:   job.Priority,
		EnqueuedAt: time.Now(),
	}); err != nil {
		// A denied admission leaves no trace; a retry is a fresh
		// submission.
		if delErr := o.deps.Jobs.Delete(ctx, job.ID); delErr != nil {
			slog.Error("Failed to roll back job after rejected enqueue",
				"job_id", job.ID,
				"error", delErr)
		}
		return nil, err
	}

	o.deps.Listings.RecordUse(ctx, req.AgentID)
	o.logTransition(ctx, job, "", string(entjob.StatusPending))
	return &SubmitResult{Job: job, Created: true, Warning: warning, listing: listing}, nil
}

// authorize evaluates the access policy for the submission. The subject is
// the user when one is given, otherwise the tenant itself; assigned roles
// are attached so policies can condition on them.
func (o *Orchestrator) authorize(ctx context.Context, req *models.CreateJobRequest, listing *ent.Listing) error {
	subjectID := req.UserID
	if subjectID == "" {
		subjectID = req.TenantID
	}
	roles, err := o.deps.Policies.RolesFor(ctx, req.TenantID, subjectID)
	if err != nil {
		return err
	}

	decision := o.deps.Policies.Evaluate(ctx, &models.AccessRequest{
		TenantID:  req.TenantID,
		SubjectID: subjectID,
		Subject: map[string]interface{}{
			"id":    subjectID,
			"roles": roles,
		},
		Resource: req.AgentID,
		ResourceAtt: map[string]interface{}{
			"tier":     string(listing.Tier),
			"category": listing.Category,
			"kind":     string(listing.Kind),
			"featured": listing.Featured,
		},
		Action:   "execute",
		ClientIP: req.ClientIP,
	})
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", services.ErrPermissionDenied, decision.Reason)
	}
	return nil
}

// checkPinnedVersion verifies a caller-pinned agent version against the
// registered compatibility window. Agents without a version record accept
// any pin.
func (o *Orchestrator) checkPinnedVersion(ctx context.Context, req *models.CreateJobRequest) error {
	if req.AgentVersion == "" {
		return nil
	}
	result, err := o.deps.Versions.CheckCompatibility(ctx, req.AgentID, req.AgentVersion)
	if err != nil {
		if errors.Is(err, services.ErrVersionNotFound) {
			return nil
		}
		return err
	}
	if !result.Compatible {
		return &services.IncompatibleError{
			ArtifactID: req.AgentID,
			Requested:  req.AgentVersion,
			Current:    result.Current,
			Issues:     result.Issues,
		}
	}
	return nil
}

// checkAvailable applies the provider availability predicate: external
// agents go through the registry's circuit and health state, local agents
// must have a registered implementation.
func (o *Orchestrator) checkAvailable(l *ent.Listing) error {
	if l.Kind == entlisting.KindExternal {
		if !o.deps.Registry.Available(l.ID) {
			return fmt.Errorf("%w: '%s'", services.ErrAgentUnavailable, l.ID)
		}
		return nil
	}
	if _, ok := o.deps.Agents.Get(l.ID); !ok {
		return fmt.Errorf("%w: '%s' has no local implementation", services.ErrAgentUnavailable, l.ID)
	}
	return nil
}

// CancelJob cancels a pending or processing job. Pending jobs leave the
// queue immediately; processing jobs are signalled through the owning
// worker's context and transition when the worker observes it. Terminal
// jobs return ErrNotCancellable.
func (o *Orchestrator) CancelJob(ctx context.Context, id, tenantID string, admin bool) (*ent.Job, error) {
	job, err := o.deps.Jobs.Get(ctx, id, tenantID, admin)
	if err != nil {
		return nil, err
	}

	if job.Status == entjob.StatusPending {
		ok, err := o.deps.Jobs.CancelPending(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			o.deps.Scheduler.Remove(id)
			o.logTransition(ctx, job, string(entjob.StatusPending), string(entjob.StatusCancelled))
			o.deps.Webhooks.Enqueue(deref(job.WebhookURL), webhooks.Event{
				Event:   webhooks.EventJobCancelled,
				JobID:   job.ID,
				AgentID: job.AgentID,
				Status:  string(entjob.StatusCancelled),
			})
			o.deps.Hub.Publish(job.ID, models.EventDone, models.DonePayload{
				Status: string(entjob.StatusCancelled),
			})
			return o.deps.Jobs.GetByID(ctx, id)
		}

		// A worker claimed the job between the read and the transition.
		job, err = o.deps.Jobs.Get(ctx, id, tenantID, admin)
		if err != nil {
			return nil, err
		}
	}

	if job.Status == entjob.StatusProcessing {
		signalled := o.pool.CancelRun(id)

		// The local transition never waits for the upstream acknowledgement.
		if deref(job.Provider) == providerExternal {
			go func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := o.deps.Proxy.Cancel(cctx, job.AgentID, job.ID); err != nil {
					slog.Warn("Upstream cancel request failed",
						"job_id", job.ID,
						"agent_id", job.AgentID,
						"error", err)
				}
			}()
		}

		if !signalled {
			fresh, err := o.deps.Jobs.Get(ctx, id, tenantID, admin)
			if err != nil {
				return nil, err
			}
			if fresh.Status != entjob.StatusProcessing {
				return nil, services.ErrNotCancellable
			}
		}
		return o.deps.Jobs.Get(ctx, id, tenantID, admin)
	}

	return nil, services.ErrNotCancellable
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
