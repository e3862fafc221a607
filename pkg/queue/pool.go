package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openagora/agora/pkg/config"
)

// WorkerPool manages a pool of queue workers draining the fair scheduler.
type WorkerPool struct {
	scheduler *Scheduler
	config    *config.QueueConfig
	executor  Executor
	workers   []*Worker
	stopCh    chan struct{}
	stopOnce  sync.Once
	started   bool

	// cancelDequeue aborts blocked Dequeue calls at shutdown while
	// letting in-flight runs finish.
	cancelDequeue context.CancelFunc

	// Run cancel registry: job_id → cancel function
	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(scheduler *Scheduler, cfg *config.QueueConfig, executor Executor) *WorkerPool {
	return &WorkerPool{
		scheduler:  scheduler,
		config:     cfg,
		executor:   executor,
		workers:    make([]*Worker, 0, cfg.WorkerCount),
		stopCh:     make(chan struct{}),
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Start spawns worker goroutines. It is safe to call multiple times;
// subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return nil
	}
	p.started = true

	slog.Info("Starting worker pool", "worker_count", p.config.WorkerCount)

	dequeueCtx, cancel := context.WithCancel(ctx)
	p.cancelDequeue = cancel

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		worker := NewWorker(workerID, p.scheduler, p.executor, p, p.config.RunTimeout)
		p.workers = append(p.workers, worker)
		worker.Start(ctx, dequeueCtx)
	}

	slog.Info("Worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish.
// Workers finish their current runs before exiting (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("Stopping worker pool gracefully")

	active := p.getActiveRunIDs()
	if len(active) > 0 {
		slog.Info("Waiting for active runs to complete",
			"count", len(active),
			"run_ids", active)
	}

	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.cancelDequeue != nil {
			p.cancelDequeue()
		}
	})

	for _, worker := range p.workers {
		worker.Wait()
	}

	slog.Info("Worker pool stopped gracefully")
}

// RegisterRun stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterRun(runID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeRuns[runID] = cancel
}

// UnregisterRun removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeRuns, runID)
}

// CancelRun triggers context cancellation for an in-flight run.
// Returns true if the run was found and signalled.
func (p *WorkerPool) CancelRun(runID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeRuns[runID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	p.mu.RLock()
	activeRuns := len(p.activeRuns)
	p.mu.RUnlock()

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		ActiveRuns:    activeRuns,
		QueueDepth:    p.scheduler.Depth(),
		WorkerStats:   workerStats,
	}
}

// getActiveRunIDs returns IDs of currently processing runs (for logging).
func (p *WorkerPool) getActiveRunIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	runs := make([]string, 0, len(p.activeRuns))
	for id := range p.activeRuns {
		runs = append(runs, id)
	}
	return runs
}
