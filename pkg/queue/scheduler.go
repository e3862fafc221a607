package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Scheduler is the in-memory fair queue. Items are grouped into priority
// bands; within a band tenants are served round-robin via a cursor that
// advances only on a successful dequeue; within a tenant order is strict
// FIFO. Tenants at their concurrent cap are skipped without moving the
// cursor past them, so they are first in line once a slot frees up.
type Scheduler struct {
	mu         sync.Mutex
	bands      map[int]*band
	priorities []int // sorted descending, mirrors bands keys
	index      map[string]*Item
	pending    map[string]int // per-tenant queued depth
	processed  map[string]int64
	total      int
	totalDone  int64

	quotas *QuotaManager

	// signal wakes one waiting dequeuer. Capacity 1: the dequeuer
	// re-signals when items remain, cascading wakeups across workers.
	signal chan struct{}
}

type band struct {
	tenants map[string]*tenantQueue
	ring    []string
	cursor  int
}

type tenantQueue struct {
	items []*Item
}

// NewScheduler creates an empty scheduler backed by the given quota manager.
func NewScheduler(quotas *QuotaManager) *Scheduler {
	if quotas == nil {
		panic("scheduler requires a quota manager")
	}
	return &Scheduler{
		bands:     make(map[int]*band),
		index:     make(map[string]*Item),
		pending:   make(map[string]int),
		processed: make(map[string]int64),
		quotas:    quotas,
		signal:    make(chan struct{}, 1),
	}
}

// Enqueue admits an item into its (priority, tenant) slot and wakes a
// waiting worker. Rejected items (pending depth or rate window exceeded) are
// never queued; the caller gets the QuotaError untouched.
func (s *Scheduler) Enqueue(item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.quotas.CheckEnqueue(item.TenantID, s.pending[item.TenantID]); err != nil {
		return err
	}
	s.insertLocked(item)
	return nil
}

// Restore re-admits an item without quota checks. Used by startup recovery
// for jobs that were already admitted before the process restarted.
func (s *Scheduler) Restore(item *Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(item)
}

// insertLocked places an item at the tail of its (priority, tenant) queue
// and wakes a waiting worker. Caller holds s.mu.
func (s *Scheduler) insertLocked(item *Item) {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}

	b, ok := s.bands[item.Priority]
	if !ok {
		b = &band{tenants: make(map[string]*tenantQueue)}
		s.bands[item.Priority] = b
		s.priorities = append(s.priorities, item.Priority)
		sort.Sort(sort.Reverse(sort.IntSlice(s.priorities)))
	}

	tq, ok := b.tenants[item.TenantID]
	if !ok {
		tq = &tenantQueue{}
		b.tenants[item.TenantID] = tq
		b.ring = append(b.ring, item.TenantID)
	}
	tq.items = append(tq.items, item)

	s.index[item.ID] = item
	s.pending[item.TenantID]++
	s.total++

	s.signalLocked()
}

// Dequeue blocks until an item is eligible or ctx is cancelled. The returned
// item holds a concurrent-run slot for its tenant; the caller must call
// Release(item.TenantID) when the run finishes.
func (s *Scheduler) Dequeue(ctx context.Context, workerID string) (*Item, error) {
	for {
		s.mu.Lock()
		item := s.pickLocked()
		if item != nil {
			if s.total > 0 {
				s.signalLocked()
			}
			s.mu.Unlock()
			return item, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.signal:
		}
	}
}

// Release frees the tenant's concurrent-run slot and wakes a waiting worker,
// since a previously capped tenant may now be eligible.
func (s *Scheduler) Release(tenant string) {
	s.quotas.Release(tenant)
	s.mu.Lock()
	if s.total > 0 {
		s.signalLocked()
	}
	s.mu.Unlock()
}

// Remove takes a still-pending item out of the queue (cancellation). Returns
// false when the item is unknown, already dequeued, or already removed.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.index[id]
	if !ok {
		return false
	}

	b := s.bands[item.Priority]
	if b == nil {
		return false
	}
	tq := b.tenants[item.TenantID]
	if tq == nil {
		return false
	}

	for i, queued := range tq.items {
		if queued.ID != id {
			continue
		}
		tq.items = append(tq.items[:i], tq.items[i+1:]...)
		if len(tq.items) == 0 {
			s.dropTenantLocked(b, item.Priority, item.TenantID, false)
		}
		delete(s.index, id)
		s.pending[item.TenantID]--
		if s.pending[item.TenantID] <= 0 {
			delete(s.pending, item.TenantID)
		}
		s.total--
		return true
	}
	return false
}

// Stats returns a snapshot of queue depth, per-tenant state, and totals.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	active := s.quotas.ActiveSnapshot()

	stats := Stats{
		TotalPending:   s.total,
		TotalProcessed: s.totalDone,
		Bands:          make(map[int]int, len(s.bands)),
		Tenants:        make(map[string]TenantStat),
	}

	oldest := make(map[string]time.Time)
	for priority, b := range s.bands {
		count := 0
		for tenant, tq := range b.tenants {
			count += len(tq.items)
			for _, item := range tq.items {
				if t, ok := oldest[tenant]; !ok || item.EnqueuedAt.Before(t) {
					oldest[tenant] = item.EnqueuedAt
				}
			}
		}
		stats.Bands[priority] = count
	}

	for tenant, count := range s.pending {
		st := stats.Tenants[tenant]
		st.Pending = count
		if t, ok := oldest[tenant]; ok {
			st.OldestPendingAge = now.Sub(t).Milliseconds()
		}
		stats.Tenants[tenant] = st
	}
	for tenant, count := range active {
		st := stats.Tenants[tenant]
		st.Active = count
		stats.Tenants[tenant] = st
	}
	for tenant, count := range s.processed {
		st := stats.Tenants[tenant]
		st.Processed = count
		stats.Tenants[tenant] = st
	}
	return stats
}

// Depth returns the number of queued items.
func (s *Scheduler) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// pickLocked scans bands highest priority first and returns the next
// eligible item, acquiring its tenant's concurrent slot. Returns nil when
// nothing is eligible (empty, or every backed tenant is capped).
func (s *Scheduler) pickLocked() *Item {
	for _, priority := range s.priorities {
		b := s.bands[priority]
		if b == nil || len(b.ring) == 0 {
			continue
		}

		n := len(b.ring)
		for i := 0; i < n; i++ {
			idx := (b.cursor + i) % n
			tenant := b.ring[idx]
			if !s.quotas.TryAcquire(tenant) {
				continue
			}

			tq := b.tenants[tenant]
			item := tq.items[0]
			tq.items = tq.items[1:]

			if len(tq.items) == 0 {
				s.dropTenantLocked(b, priority, tenant, true)
			} else {
				b.cursor = (idx + 1) % n
			}

			delete(s.index, item.ID)
			s.pending[tenant]--
			if s.pending[tenant] <= 0 {
				delete(s.pending, tenant)
			}
			s.total--
			s.processed[tenant]++
			s.totalDone++
			return item
		}
	}
	return nil
}

// dropTenantLocked removes an emptied tenant queue from the band's ring and
// collects the band when it empties. afterDequeue keeps the cursor pointing
// at the tenant that slid into the removed slot (the round-robin successor);
// a removal elsewhere (cancel) only shifts the cursor back when needed.
func (s *Scheduler) dropTenantLocked(b *band, priority int, tenant string, afterDequeue bool) {
	delete(b.tenants, tenant)
	for i, t := range b.ring {
		if t != tenant {
			continue
		}
		b.ring = append(b.ring[:i], b.ring[i+1:]...)
		if len(b.ring) == 0 {
			b.cursor = 0
			break
		}
		if afterDequeue {
			b.cursor = i % len(b.ring)
		} else {
			if i < b.cursor {
				b.cursor--
			}
			b.cursor = b.cursor % len(b.ring)
		}
		break
	}

	if len(b.tenants) == 0 {
		delete(s.bands, priority)
		for i, p := range s.priorities {
			if p == priority {
				s.priorities = append(s.priorities[:i], s.priorities[i+1:]...)
				break
			}
		}
	}
}

// signalLocked performs a non-blocking send on the wakeup channel.
func (s *Scheduler) signalLocked() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
