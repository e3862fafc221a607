package queue

import (
	"sync"
	"time"

	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/services"
)

// QuotaManager enforces per-tenant admission limits: concurrent runs
// (checked at dequeue), pending depth and sliding-window rate (both checked
// at enqueue). Limits come from defaults plus per-tenant overrides.
type QuotaManager struct {
	mu        sync.Mutex
	defaults  config.TenantQuotaConfig
	overrides map[string]config.TenantQuotaConfig
	active    map[string]int
	windows   map[string][]time.Time
	window    time.Duration

	now func() time.Time // stubbed in tests
}

// NewQuotaManager creates a quota manager. window bounds the sliding rate
// counter; zero falls back to one minute.
func NewQuotaManager(defaults config.TenantQuotaConfig, overrides map[string]config.TenantQuotaConfig, window time.Duration) *QuotaManager {
	if window <= 0 {
		window = time.Minute
	}
	if overrides == nil {
		overrides = make(map[string]config.TenantQuotaConfig)
	}
	return &QuotaManager{
		defaults:  defaults,
		overrides: overrides,
		active:    make(map[string]int),
		windows:   make(map[string][]time.Time),
		window:    window,
		now:       time.Now,
	}
}

// LimitsFor returns the effective limits for a tenant.
func (q *QuotaManager) LimitsFor(tenant string) config.TenantQuotaConfig {
	if limits, ok := q.overrides[tenant]; ok {
		return limits
	}
	return q.defaults
}

// CheckEnqueue admits or rejects a new enqueue for the tenant. pending is the
// tenant's current queued depth as seen by the scheduler. An admitted request
// is counted against the rate window; a denied one is not.
func (q *QuotaManager) CheckEnqueue(tenant string, pending int) error {
	limits := q.LimitsFor(tenant)

	if limits.MaxPending > 0 && pending >= limits.MaxPending {
		return services.NewQuotaError(tenant, "pending", limits.MaxPending)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if limits.MaxPerWindow > 0 {
		cutoff := q.now().Add(-q.window)
		recent := q.windows[tenant][:0]
		for _, ts := range q.windows[tenant] {
			if ts.After(cutoff) {
				recent = append(recent, ts)
			}
		}
		q.windows[tenant] = recent
		if len(recent) >= limits.MaxPerWindow {
			return services.NewQuotaError(tenant, "rate", limits.MaxPerWindow)
		}
		q.windows[tenant] = append(q.windows[tenant], q.now())
	}
	return nil
}

// TryAcquire reserves one concurrent-run slot for the tenant. Returns false
// when the tenant is at its cap; the caller must skip it this cycle.
func (q *QuotaManager) TryAcquire(tenant string) bool {
	limits := q.LimitsFor(tenant)

	q.mu.Lock()
	defer q.mu.Unlock()
	if limits.MaxConcurrent > 0 && q.active[tenant] >= limits.MaxConcurrent {
		return false
	}
	q.active[tenant]++
	return true
}

// Release returns a concurrent-run slot after a run finishes.
func (q *QuotaManager) Release(tenant string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active[tenant] > 0 {
		q.active[tenant]--
	}
	if q.active[tenant] == 0 {
		delete(q.active, tenant)
	}
}

// ActiveCount returns the tenant's in-flight run count.
func (q *QuotaManager) ActiveCount(tenant string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active[tenant]
}

// ActiveSnapshot copies the per-tenant active counts for stats reporting.
func (q *QuotaManager) ActiveSnapshot() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshot := make(map[string]int, len(q.active))
	for tenant, count := range q.active {
		snapshot[tenant] = count
	}
	return snapshot
}
