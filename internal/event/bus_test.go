package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

func newTestBus() *Bus {
	return NewBus(zap.NewNop())
}

func driftEvent(deviceID string) plugin.Event {
	return plugin.Event{
		Topic:     "snapshot.drift.detected",
		Source:    "snapshot",
		Timestamp: time.Now().UTC(),
		Payload:   deviceID,
	}
}

// TestPublishDeliversToSubscriber verifies synchronous topic delivery.
func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := newTestBus()

	var got []plugin.Event
	bus.Subscribe("snapshot.drift.detected", func(_ context.Context, e plugin.Event) {
		got = append(got, e)
	})

	if err := bus.Publish(context.Background(), driftEvent("dev-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if got[0].Payload != "dev-1" {
		t.Errorf("payload = %v, want dev-1", got[0].Payload)
	}
}

// TestPublishTopicIsolation verifies that handlers only see their topic.
func TestPublishTopicIsolation(t *testing.T) {
	bus := newTestBus()

	var driftCalls, breachCalls int
	bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) { driftCalls++ })
	bus.Subscribe("telemetry.threshold.breached", func(_ context.Context, _ plugin.Event) { breachCalls++ })

	bus.Publish(context.Background(), driftEvent("dev-1"))

	if driftCalls != 1 {
		t.Errorf("drift handler called %d times, want 1", driftCalls)
	}
	if breachCalls != 0 {
		t.Errorf("breach handler called %d times, want 0", breachCalls)
	}
}

// TestPublishMultipleSubscribers verifies fan-out to all topic handlers.
func TestPublishMultipleSubscribers(t *testing.T) {
	bus := newTestBus()

	var calls int
	for i := 0; i < 3; i++ {
		bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) { calls++ })
	}

	bus.Publish(context.Background(), driftEvent("dev-1"))

	if calls != 3 {
		t.Errorf("handlers called %d times, want 3", calls)
	}
}

// TestUnsubscribe verifies that an unsubscribed handler stops receiving.
func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()

	var calls int
	unsubscribe := bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) { calls++ })

	bus.Publish(context.Background(), driftEvent("dev-1"))
	unsubscribe()
	bus.Publish(context.Background(), driftEvent("dev-2"))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1 (unsubscribed before second publish)", calls)
	}
}

// TestUnsubscribeTwice verifies that a double unsubscribe is safe.
func TestUnsubscribeTwice(t *testing.T) {
	bus := newTestBus()

	unsubscribe := bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) {})
	unsubscribe()
	unsubscribe() // must not panic or remove another handler

	var calls int
	bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) { calls++ })
	bus.Publish(context.Background(), driftEvent("dev-1"))

	if calls != 1 {
		t.Errorf("remaining handler called %d times, want 1", calls)
	}
}

// TestSubscribeAll verifies wildcard subscribers see every topic.
func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()

	var topics []string
	bus.SubscribeAll(func(_ context.Context, e plugin.Event) {
		topics = append(topics, e.Topic)
	})

	bus.Publish(context.Background(), driftEvent("dev-1"))
	bus.Publish(context.Background(), plugin.Event{Topic: "alert.created", Source: "alert"})

	if len(topics) != 2 {
		t.Fatalf("wildcard handler called %d times, want 2", len(topics))
	}
	if topics[0] != "snapshot.drift.detected" || topics[1] != "alert.created" {
		t.Errorf("topics = %v", topics)
	}
}

// TestPublishAsync verifies asynchronous delivery eventually completes.
func TestPublishAsync(t *testing.T) {
	bus := newTestBus()

	var calls int32
	done := make(chan struct{})
	bus.Subscribe("alert.created", func(_ context.Context, _ plugin.Event) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(done)
		}
	})

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "alert.created", Source: "alert"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler was not called within 2s")
	}
}

// TestHandlerPanicIsContained verifies a panicking handler does not take
// down the publisher or starve other handlers.
func TestHandlerPanicIsContained(t *testing.T) {
	bus := newTestBus()

	bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) {
		panic("handler bug")
	})

	var calls int
	bus.Subscribe("snapshot.drift.detected", func(_ context.Context, _ plugin.Event) { calls++ })

	if err := bus.Publish(context.Background(), driftEvent("dev-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if calls != 1 {
		t.Errorf("second handler called %d times, want 1 despite panic in first", calls)
	}
}

// TestConcurrentPublishSubscribe verifies the bus is safe under
// concurrent publishers and subscribers.
func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var calls int32
	bus.Subscribe("telemetry.threshold.breached", func(_ context.Context, _ plugin.Event) {
		atomic.AddInt32(&calls, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), plugin.Event{Topic: "telemetry.threshold.breached"})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe("other.topic", func(_ context.Context, _ plugin.Event) {})
			unsub()
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 10 {
		t.Errorf("handler called %d times, want 10", got)
	}
}
