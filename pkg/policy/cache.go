package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openagora/agora/ent"
	entpolicy "github.com/openagora/agora/ent/policy"
)

// cache holds every enabled policy in memory, sorted by ascending priority
// so evaluation never re-sorts. Readers take the read lock; refresh and
// invalidation take the write lock.
type cache struct {
	client   *ent.Client
	interval time.Duration

	mu       sync.RWMutex
	policies []*ent.Policy
	loadedAt time.Time

	startMu  sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newCache(client *ent.Client, interval time.Duration) *cache {
	return &cache{
		client:   client,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// refresh reloads the full enabled policy set.
func (c *cache) refresh(ctx context.Context) error {
	policies, err := c.client.Policy.Query().
		Where(entpolicy.EnabledEQ(true)).
		Order(ent.Asc(entpolicy.FieldPriority), ent.Asc(entpolicy.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	c.mu.Lock()
	c.policies = policies
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// invalidate reloads immediately after a mutation. A failed reload keeps
// the previous snapshot; the periodic refresh will retry.
func (c *cache) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.refresh(ctx); err != nil {
		slog.Warn("Policy cache reload after mutation failed", "error", err)
	}
}

// forTenant returns the policies applicable to a tenant: global rows plus
// the tenant's own, in ascending priority order.
func (c *cache) forTenant(tenantID string) []*ent.Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	applicable := make([]*ent.Policy, 0, len(c.policies))
	for _, p := range c.policies {
		if p.TenantID == nil || *p.TenantID == tenantID {
			applicable = append(applicable, p)
		}
	}
	return applicable
}

func (c *cache) start() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started || c.interval <= 0 {
		return
	}
	c.started = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := c.refresh(ctx); err != nil {
					slog.Warn("Periodic policy cache refresh failed", "error", err)
				}
				cancel()
			}
		}
	}()
}

func (c *cache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}
