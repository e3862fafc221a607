package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Worker is a single queue worker that blocks on the scheduler and hands
// eligible items to the executor.
type Worker struct {
	id         string
	scheduler  *Scheduler
	executor   Executor
	pool       RunRegistry
	runTimeout time.Duration
	wg         sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentRunID  string
	runsProcessed int
	lastActivity  time.Time
}

// RunRegistry is the subset of WorkerPool used by Worker for run registration.
type RunRegistry interface {
	RegisterRun(runID string, cancel context.CancelFunc)
	UnregisterRun(runID string)
}

type workerIDKey struct{}

// WorkerIDFromContext returns the id of the worker driving the current run,
// or empty when the executor was invoked outside the pool.
func WorkerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workerIDKey{}).(string)
	return id
}

// NewWorker creates a new queue worker.
func NewWorker(id string, scheduler *Scheduler, executor Executor, pool RunRegistry, runTimeout time.Duration) *Worker {
	return &Worker{
		id:           id,
		scheduler:    scheduler,
		executor:     executor,
		pool:         pool,
		runTimeout:   runTimeout,
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker loop in a goroutine. runCtx bounds executions
// (a hard parent cancel kills in-flight runs); dequeueCtx only aborts the
// blocking dequeue, which is how graceful shutdown drains the pool.
func (w *Worker) Start(runCtx, dequeueCtx context.Context) {
	w.wg.Add(1)
	go w.run(runCtx, dequeueCtx)
}

// Wait blocks until the worker loop has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentRunID:  w.currentRunID,
		RunsProcessed: w.runsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(runCtx, dequeueCtx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("Worker started")

	for {
		item, err := w.scheduler.Dequeue(dequeueCtx, w.id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Worker shutting down")
			} else {
				log.Error("Dequeue failed, worker shutting down", "error", err)
			}
			return
		}
		w.process(runCtx, item)
	}
}

// process executes one dequeued item. The tenant's concurrent slot acquired
// at dequeue is released here no matter how the run ends.
func (w *Worker) process(parent context.Context, item *Item) {
	log := slog.With("job_id", item.ID, "worker_id", w.id)
	log.Info("Run claimed",
		"tenant_id", item.TenantID,
		"agent_id", item.AgentID,
		"queued_for", time.Since(item.EnqueuedAt).Round(time.Millisecond).String())

	w.setStatus(WorkerStatusWorking, item.ID)
	defer w.setStatus(WorkerStatusIdle, "")
	defer w.scheduler.Release(item.TenantID)

	// Run context with timeout; registered for API-triggered cancellation.
	runCtx, cancelRun := context.WithTimeout(parent, w.runTimeout)
	defer cancelRun()
	runCtx = context.WithValue(runCtx, workerIDKey{}, w.id)

	w.pool.RegisterRun(item.ID, cancelRun)
	defer w.pool.UnregisterRun(item.ID)

	if err := w.executor.Execute(runCtx, item); err != nil {
		log.Error("Run execution failed", "error", err)
	}

	w.mu.Lock()
	w.runsProcessed++
	w.mu.Unlock()

	log.Info("Run processing complete")
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, runID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentRunID = runID
	w.lastActivity = time.Now()
}
