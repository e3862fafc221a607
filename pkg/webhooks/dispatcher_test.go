package webhooks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openagora/agora/pkg/config"
)

func newTestDispatcher(t *testing.T, cfg *config.WebhooksConfig) *Dispatcher {
	t.Helper()
	d := NewDispatcher(cfg)
	d.retryDelay = time.Millisecond
	d.Start()
	t.Cleanup(d.Stop)
	return d
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
		return Event{}
	}
}

func TestDispatcherDelivers(t *testing.T) {
	got := make(chan Event, 1)
	var contentType atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType.Store(r.Header.Get("Content-Type"))
		var e Event
		_ = json.NewDecoder(r.Body).Decode(&e)
		got <- e
	}))
	defer server.Close()

	d := newTestDispatcher(t, nil)
	d.Enqueue(server.URL, Event{
		Event:   EventJobCompleted,
		JobID:   "job-1",
		AgentID: "summarizer",
		Status:  "completed",
		Output:  map[string]interface{}{"answer": "42"},
	})

	e := waitEvent(t, got)
	assert.Equal(t, EventJobCompleted, e.Event)
	assert.Equal(t, "job-1", e.JobID)
	assert.Equal(t, "summarizer", e.AgentID)
	assert.Equal(t, "completed", e.Status)
	assert.Equal(t, map[string]interface{}{"answer": "42"}, e.Output)
	assert.Empty(t, e.Error)
	assert.Equal(t, "application/json", contentType.Load())
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	got := make(chan Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		var e Event
		_ = json.NewDecoder(r.Body).Decode(&e)
		got <- e
	}))
	defer server.Close()

	d := newTestDispatcher(t, nil)
	d.Enqueue(server.URL, Event{
		Event:  EventJobFailed,
		JobID:  "job-2",
		Status: "failed",
		Error:  "agent exploded",
	})

	e := waitEvent(t, got)
	assert.Equal(t, "agent exploded", e.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	attempts := make(chan struct{}, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		attempts <- struct{}{}
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.DefaultWebhooksConfig()
	cfg.MaxAttempts = 3
	d := newTestDispatcher(t, cfg)
	d.Enqueue(server.URL, Event{Event: EventJobFailed, JobID: "job-3", Status: "failed"})

	for i := 0; i < 3; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d never arrived", i+1)
		}
	}

	// No fourth attempt.
	select {
	case <-attempts:
		t.Fatal("delivery retried past max attempts")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	got := make(chan Event, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Event
		_ = json.NewDecoder(r.Body).Decode(&e)
		got <- e
	}))
	defer server.Close()

	cfg := config.DefaultWebhooksConfig()
	cfg.QueueSize = 1
	cfg.Workers = 1
	d := NewDispatcher(cfg)
	d.retryDelay = time.Millisecond

	// Workers are not running yet, so the second enqueue finds the queue
	// full and must drop without blocking.
	d.Enqueue(server.URL, Event{Event: EventJobCompleted, JobID: "kept", Status: "completed"})
	d.Enqueue(server.URL, Event{Event: EventJobCompleted, JobID: "dropped", Status: "completed"})

	d.Start()
	defer d.Stop()

	e := waitEvent(t, got)
	assert.Equal(t, "kept", e.JobID)

	select {
	case e := <-got:
		t.Fatalf("unexpected second delivery for job %q", e.JobID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcherIgnoresBlankURL(t *testing.T) {
	d := NewDispatcher(nil)
	d.Enqueue("", Event{Event: EventJobCompleted, JobID: "job-4"})
	assert.Empty(t, d.queue)
}

func TestDispatcherStopIsIdempotent(t *testing.T) {
	d := NewDispatcher(nil)
	d.Start()
	d.Stop()
	d.Stop()

	// Stop without Start must not hang either.
	fresh := NewDispatcher(nil)
	done := make(chan struct{})
	go func() {
		fresh.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop without Start deadlocked")
	}
}
