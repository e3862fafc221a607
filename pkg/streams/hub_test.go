package streams

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/pkg/models"
)

// collect drains ch until it closes or the timeout elapses.
func collect(t *testing.T, ch <-chan models.StreamEvent, timeout time.Duration) []models.StreamEvent {
	t.Helper()
	var events []models.StreamEvent
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for channel close, got %d events", len(events))
		}
	}
}

func TestHubFanOut(t *testing.T) {
	t.Run("all subscribers receive events in publish order", func(t *testing.T) {
		hub := NewHub(Config{})

		ch1, cancel1 := hub.Subscribe("run-1", "client-a")
		ch2, cancel2 := hub.Subscribe("run-1", "client-b")
		defer cancel1()
		defer cancel2()

		hub.Publish("run-1", models.EventStart, models.StartPayload{JobID: "run-1", AgentID: "echo"})
		hub.Publish("run-1", models.EventToken, models.TokenPayload{Text: "hello"})
		hub.Publish("run-1", models.EventToken, models.TokenPayload{Text: " world"})
		hub.Publish("run-1", models.EventDone, models.DonePayload{Status: "completed"})

		wantTypes := []string{models.EventStart, models.EventToken, models.EventToken, models.EventDone}
		for _, ch := range []<-chan models.StreamEvent{ch1, ch2} {
			events := collect(t, ch, time.Second)
			require.Len(t, events, 4)
			var prevSeq int64
			for i, ev := range events {
				assert.Equal(t, wantTypes[i], ev.Type)
				assert.Greater(t, ev.Seq, prevSeq, "seq must be strictly increasing")
				assert.Equal(t, "run-1", ev.RequestID)
				prevSeq = ev.Seq
			}
		}
	})

	t.Run("seq starts at 1 and increments per run independently", func(t *testing.T) {
		hub := NewHub(Config{})
		chA, _ := hub.Subscribe("run-a", "c1")
		chB, _ := hub.Subscribe("run-b", "c2")

		hub.Publish("run-a", models.EventStart, nil)
		hub.Publish("run-b", models.EventStart, nil)
		hub.Publish("run-a", models.EventDone, nil)
		hub.Publish("run-b", models.EventDone, nil)

		eventsA := collect(t, chA, time.Second)
		eventsB := collect(t, chB, time.Second)
		require.Len(t, eventsA, 2)
		require.Len(t, eventsB, 2)
		assert.Equal(t, int64(1), eventsA[0].Seq)
		assert.Equal(t, int64(2), eventsA[1].Seq)
		assert.Equal(t, int64(1), eventsB[0].Seq)
		assert.Equal(t, int64(2), eventsB[1].Seq)
	})
}

func TestHubReplay(t *testing.T) {
	t.Run("late subscriber receives buffered events first", func(t *testing.T) {
		hub := NewHub(Config{})

		hub.Publish("run-1", models.EventStart, nil)
		hub.Publish("run-1", models.EventToken, models.TokenPayload{Text: "early"})

		ch, cancel := hub.Subscribe("run-1", "late-client")
		defer cancel()

		hub.Publish("run-1", models.EventDone, nil)

		events := collect(t, ch, time.Second)
		require.Len(t, events, 3)
		assert.Equal(t, models.EventStart, events[0].Type)
		assert.Equal(t, models.EventToken, events[1].Type)
		assert.Equal(t, models.EventDone, events[2].Type)
	})

	t.Run("replay ring keeps only the newest events", func(t *testing.T) {
		hub := NewHub(Config{ReplayBuffer: 3})

		for i := 0; i < 10; i++ {
			hub.Publish("run-1", models.EventToken, models.TokenPayload{Text: "t"})
		}

		ch, cancel := hub.Subscribe("run-1", "late")
		defer cancel()
		hub.Publish("run-1", models.EventDone, nil)

		events := collect(t, ch, time.Second)
		require.Len(t, events, 4) // 3 replayed + done
		assert.Equal(t, int64(8), events[0].Seq)
	})
}

func TestHubSlowSubscriber(t *testing.T) {
	hub := NewHub(Config{SubscriberBuffer: 2})

	ch, cancel := hub.Subscribe("run-1", "slow")
	defer cancel()

	// Fill the buffer without reading; the third publish must drop the
	// subscriber instead of blocking.
	done := make(chan struct{})
	go func() {
		hub.Publish("run-1", models.EventToken, nil)
		hub.Publish("run-1", models.EventToken, nil)
		hub.Publish("run-1", models.EventToken, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Equal(t, 0, hub.SubscriberCount("run-1"))

	// The channel was closed by the drop; buffered events remain readable.
	events := collect(t, ch, time.Second)
	assert.Len(t, events, 2)
}

func TestHubClose(t *testing.T) {
	t.Run("done event closes the run and all channels", func(t *testing.T) {
		hub := NewHub(Config{})
		ch, _ := hub.Subscribe("run-1", "c1")

		hub.Publish("run-1", models.EventDone, models.DonePayload{Status: "completed"})

		events := collect(t, ch, time.Second)
		require.Len(t, events, 1)
		assert.Equal(t, 0, hub.ActiveRuns())

		// Publishing after close is a no-op.
		hub.Publish("run-1", models.EventToken, nil)
	})

	t.Run("error event is terminal", func(t *testing.T) {
		hub := NewHub(Config{})
		ch, _ := hub.Subscribe("run-1", "c1")

		hub.Publish("run-1", models.EventError, models.ErrorPayload{Message: "boom"})

		events := collect(t, ch, time.Second)
		require.Len(t, events, 1)
		assert.Equal(t, models.EventError, events[0].Type)
		assert.Equal(t, 0, hub.ActiveRuns())
	})

	t.Run("CloseRun tears down without terminal event", func(t *testing.T) {
		hub := NewHub(Config{})
		ch, _ := hub.Subscribe("run-1", "c1")
		hub.Publish("run-1", models.EventStart, nil)

		hub.CloseRun("run-1")

		events := collect(t, ch, time.Second)
		require.Len(t, events, 1)
		assert.Equal(t, 0, hub.ActiveRuns())
	})

	t.Run("cancel is idempotent and safe after drop", func(t *testing.T) {
		hub := NewHub(Config{})
		_, cancel := hub.Subscribe("run-1", "c1")
		cancel()
		cancel()
		assert.Equal(t, 0, hub.SubscriberCount("run-1"))
	})
}
