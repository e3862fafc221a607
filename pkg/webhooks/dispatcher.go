// Package webhooks delivers terminal job notifications to caller-supplied
// URLs. Delivery is asynchronous and fail-open: a notification that cannot
// be delivered is logged and dropped, never affecting job state.
package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openagora/agora/pkg/config"
)

// Webhook event names, one per terminal transition.
const (
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
	EventJobCancelled = "job.cancelled"
)

// Event is the JSON body posted to the webhook URL.
type Event struct {
	Event   string      `json:"event"`
	JobID   string      `json:"job_id"`
	AgentID string      `json:"agent_id"`
	Status  string      `json:"status"`
	Output  interface{} `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type delivery struct {
	url   string
	event Event
}

// Dispatcher drains a bounded delivery queue with a small worker pool.
// Each delivery is tried up to MaxAttempts times with quadratic backoff
// between attempts (at-least-once, not exactly-once).
type Dispatcher struct {
	config *config.WebhooksConfig
	client *http.Client
	queue  chan delivery
	logger *slog.Logger

	// retryDelay scales the backoff between attempts; tests shrink it.
	retryDelay time.Duration

	startMu  sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a stopped dispatcher with the given configuration.
func NewDispatcher(cfg *config.WebhooksConfig) *Dispatcher {
	if cfg == nil {
		cfg = config.DefaultWebhooksConfig()
	}
	return &Dispatcher{
		config:     cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		queue:      make(chan delivery, cfg.QueueSize),
		logger:     slog.Default().With("component", "webhooks"),
		retryDelay: time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the delivery workers. Safe to call more than once.
func (d *Dispatcher) Start() {
	d.startMu.Lock()
	defer d.startMu.Unlock()
	if d.started {
		return
	}
	d.started = true

	workers := d.config.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("Webhook dispatcher started", "workers", workers)
}

// Stop signals the workers and waits for in-flight deliveries to finish.
// Deliveries still queued are dropped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
	d.wg.Wait()
}

// Enqueue schedules one notification. It never blocks: when the queue is
// full the event is dropped with a warning.
func (d *Dispatcher) Enqueue(url string, event Event) {
	if url == "" {
		return
	}
	select {
	case d.queue <- delivery{url: url, event: event}:
	default:
		d.logger.Warn("Webhook queue full, dropping delivery",
			"job_id", event.JobID,
			"event", event.Event)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopCh:
			return
		case del := <-d.queue:
			d.deliver(del)
		}
	}
}

func (d *Dispatcher) deliver(del delivery) {
	body, err := json.Marshal(del.event)
	if err != nil {
		d.logger.Error("Failed to encode webhook payload",
			"job_id", del.event.JobID,
			"error", err)
		return
	}

	maxAttempts := d.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = d.post(del.url, body)
		if err == nil {
			if attempt > 1 {
				d.logger.Info("Webhook delivered after retry",
					"job_id", del.event.JobID,
					"attempt", attempt)
			}
			return
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt*attempt) * d.retryDelay):
			case <-d.stopCh:
				return
			}
		}
	}

	d.logger.Error("Webhook delivery failed, giving up",
		"job_id", del.event.JobID,
		"url", del.url,
		"attempts", maxAttempts,
		"error", err)
}

func (d *Dispatcher) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
