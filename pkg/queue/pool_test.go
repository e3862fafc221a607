package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/pkg/config"
)

// stubExecutor records executed item IDs and optionally blocks until its
// context is cancelled.
type stubExecutor struct {
	mu       sync.Mutex
	executed []string
	block    bool
	started  chan string
}

func (e *stubExecutor) Execute(ctx context.Context, item *Item) error {
	if e.started != nil {
		e.started <- item.ID
	}
	if e.block {
		<-ctx.Done()
	}
	e.mu.Lock()
	e.executed = append(e.executed, item.ID)
	e.mu.Unlock()
	return nil
}

func (e *stubExecutor) executedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

func testQueueConfig(workers int) *config.QueueConfig {
	cfg := config.DefaultQueueConfig()
	cfg.WorkerCount = workers
	cfg.RunTimeout = 5 * time.Second
	return cfg
}

func TestWorkerPoolProcessesQueue(t *testing.T) {
	s := newTestScheduler(config.TenantQuotaConfig{})
	exec := &stubExecutor{}
	pool := NewWorkerPool(s, testQueueConfig(2), exec)

	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	require.NoError(t, s.Enqueue(&Item{ID: "job-1", TenantID: "acme", Priority: 5}))
	require.NoError(t, s.Enqueue(&Item{ID: "job-2", TenantID: "acme", Priority: 5}))
	require.NoError(t, s.Enqueue(&Item{ID: "job-3", TenantID: "beta", Priority: 5}))

	assert.Eventually(t, func() bool {
		return len(exec.executedIDs()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, s.Depth())
}

func TestWorkerPoolCancelRun(t *testing.T) {
	s := newTestScheduler(config.TenantQuotaConfig{})
	exec := &stubExecutor{block: true, started: make(chan string, 1)}
	pool := NewWorkerPool(s, testQueueConfig(1), exec)

	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	require.NoError(t, s.Enqueue(&Item{ID: "long-run", TenantID: "acme", Priority: 5}))

	select {
	case id := <-exec.started:
		require.Equal(t, "long-run", id)
	case <-time.After(time.Second):
		t.Fatal("run never started")
	}

	assert.True(t, pool.CancelRun("long-run"))

	assert.Eventually(t, func() bool {
		return len(exec.executedIDs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The registry entry is gone once processing ends.
	assert.Eventually(t, func() bool {
		return !pool.CancelRun("long-run")
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerPoolGracefulStop(t *testing.T) {
	s := newTestScheduler(config.TenantQuotaConfig{})
	exec := &stubExecutor{}
	pool := NewWorkerPool(s, testQueueConfig(2), exec)

	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Start(context.Background()), "duplicate Start is a no-op")

	require.NoError(t, s.Enqueue(&Item{ID: "job-1", TenantID: "acme", Priority: 5}))
	assert.Eventually(t, func() bool {
		return len(exec.executedIDs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pool.Stop()

	health := pool.Health()
	assert.True(t, health.IsHealthy)
	assert.Equal(t, 2, health.TotalWorkers)
	assert.Equal(t, 0, health.ActiveRuns)
}
