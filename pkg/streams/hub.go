package streams

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openagora/agora/pkg/models"
)

const (
	// DefaultSubscriberBuffer is the per-subscriber channel capacity. A
	// subscriber that falls this far behind the producer is dropped.
	DefaultSubscriberBuffer = 64

	// DefaultReplayBuffer is how many events per run are retained for
	// subscribers that attach after the run started.
	DefaultReplayBuffer = 256
)

// Config controls Hub buffering.
type Config struct {
	SubscriberBuffer int
	ReplayBuffer     int
}

// Hub fans out run events to any number of SSE and WebSocket subscribers.
// Each Go process has one Hub instance; runs are keyed by job id.
type Hub struct {
	mu   sync.RWMutex
	runs map[string]*run

	subscriberBuffer int
	replayBuffer     int
}

// run holds the live state of one streaming job. seq and the replay ring are
// only touched under mu, which makes per-run sequence numbers strictly
// increasing and gives every subscriber the same event order.
type run struct {
	mu          sync.Mutex
	id          string
	seq         int64
	replay      []models.StreamEvent
	subscribers map[string]chan models.StreamEvent
	closed      bool
}

// NewHub creates a Hub. Zero config fields fall back to defaults.
func NewHub(cfg Config) *Hub {
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if cfg.ReplayBuffer <= 0 {
		cfg.ReplayBuffer = DefaultReplayBuffer
	}
	return &Hub{
		runs:             make(map[string]*run),
		subscriberBuffer: cfg.SubscriberBuffer,
		replayBuffer:     cfg.ReplayBuffer,
	}
}

// Subscribe attaches a client to a run and returns the event channel plus a
// cancel function. The run entry is created on first use, so callers may
// subscribe before the job is enqueued and miss nothing. Events already
// published to a live run are replayed into the channel before it is
// returned.
//
// The channel is closed when the run ends, when the subscriber cancels, or
// when the subscriber falls too far behind.
func (h *Hub) Subscribe(runID, clientID string) (<-chan models.StreamEvent, func()) {
	r := h.getOrCreateRun(runID)

	r.mu.Lock()
	if r.closed {
		// Run already ended. Hand back a closed channel carrying the
		// replay tail so a racing subscriber still sees the terminal
		// event instead of blocking forever.
		ch := make(chan models.StreamEvent, len(r.replay))
		for _, ev := range r.replay {
			ch <- ev
		}
		close(ch)
		r.mu.Unlock()
		return ch, func() {}
	}

	// Size the channel so the replay always fits ahead of live events.
	ch := make(chan models.StreamEvent, h.subscriberBuffer+len(r.replay))
	for _, ev := range r.replay {
		ch <- ev
	}
	r.subscribers[clientID] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.subscribers[clientID]; ok && existing == ch {
			delete(r.subscribers, clientID)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish assigns the next sequence number and delivers the event to every
// subscriber of the run. Sends never block: a subscriber whose buffer is full
// is dropped and its channel closed. Publishing EventDone (or EventError)
// closes the run afterwards.
func (h *Hub) Publish(runID, eventType string, data interface{}) {
	r := h.getOrCreateRun(runID)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.seq++
	ev := models.StreamEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Seq:       r.seq,
		RequestID: runID,
	}

	r.replay = append(r.replay, ev)
	if len(r.replay) > h.replayBuffer {
		r.replay = r.replay[len(r.replay)-h.replayBuffer:]
	}

	for id, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// Subscriber can't keep up. Drop it rather than stall
			// everyone else on this run.
			delete(r.subscribers, id)
			close(ch)
			slog.Warn("Dropping slow stream subscriber",
				"run_id", runID, "client_id", id, "seq", ev.Seq)
		}
	}

	terminal := eventType == models.EventDone || eventType == models.EventError
	if terminal {
		r.closeLocked()
	}
	r.mu.Unlock()

	if terminal {
		h.removeRun(runID, r)
	}
}

// CloseRun ends a run without a terminal event. Used when a job is torn down
// outside the normal done/error path (e.g. orphan recovery at startup).
func (h *Hub) CloseRun(runID string) {
	h.mu.RLock()
	r, ok := h.runs[runID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	r.closeLocked()
	r.mu.Unlock()

	h.removeRun(runID, r)
}

// ActiveRuns returns the number of open runs.
func (h *Hub) ActiveRuns() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}

// SubscriberCount returns the number of subscribers attached to a run.
func (h *Hub) SubscriberCount(runID string) int {
	h.mu.RLock()
	r, ok := h.runs[runID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}

func (h *Hub) getOrCreateRun(runID string) *run {
	h.mu.RLock()
	r, ok := h.runs[runID]
	h.mu.RUnlock()
	if ok {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok = h.runs[runID]; ok {
		return r
	}
	r = &run{
		id:          runID,
		subscribers: make(map[string]chan models.StreamEvent),
	}
	h.runs[runID] = r
	return r
}

// closeLocked closes every subscriber channel and marks the run ended.
// Caller holds r.mu.
func (r *run) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subscribers {
		delete(r.subscribers, id)
		close(ch)
	}
}

// removeRun deletes the run entry if it still points at r. A new run under
// the same id (job re-submission) is left alone.
func (h *Hub) removeRun(runID string, r *run) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.runs[runID]; ok && current == r {
		delete(h.runs, runID)
	}
}
