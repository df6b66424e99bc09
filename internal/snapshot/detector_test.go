package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// captureBus records published events synchronously for assertions.
type captureBus struct {
	mu     sync.Mutex
	events []plugin.Event
}

func (b *captureBus) Publish(_ context.Context, event plugin.Event) error {
	b.record(event)
	return nil
}

func (b *captureBus) PublishAsync(_ context.Context, event plugin.Event) {
	b.record(event)
}

func (b *captureBus) Subscribe(string, plugin.EventHandler) func() { return func() {} }
func (b *captureBus) SubscribeAll(plugin.EventHandler) func()      { return func() {} }

func (b *captureBus) record(event plugin.Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *captureBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	topics := make([]string, len(b.events))
	for i, e := range b.events {
		topics[i] = e.Topic
	}
	return topics
}

// fakeSource returns a fixed deployment per device.
type fakeSource struct {
	deployments map[string]*Deployment
	err         error
}

func (f *fakeSource) ActiveDeployment(_ context.Context, deviceID string) (*Deployment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.deployments[deviceID], nil
}

func testSnapshot(deviceID, configuration string) *Snapshot {
	return &Snapshot{
		ID:                "snap-1",
		DeviceID:          deviceID,
		ConfigurationHash: HashConfiguration(configuration),
		ConfigurationData: configuration,
		Cause:             CauseManual,
		CreatedAt:         time.Now().UTC(),
	}
}

// TestEvaluateNoDeploymentSkips verifies that devices without a deployment
// are skipped silently.
func TestEvaluateNoDeploymentSkips(t *testing.T) {
	bus := &captureBus{}
	d := NewDetector(&fakeSource{deployments: map[string]*Deployment{}}, bus, zap.NewNop())

	checked, drifted, err := d.Evaluate(context.Background(), testSnapshot("dev-1", "vlan 10\n"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if checked || drifted {
		t.Errorf("checked=%v drifted=%v, want false false", checked, drifted)
	}
	if len(bus.topics()) != 0 {
		t.Errorf("expected no events, got %v", bus.topics())
	}
}

// TestEvaluateMismatchPublishesDrift verifies the drift detected signal.
func TestEvaluateMismatchPublishesDrift(t *testing.T) {
	bus := &captureBus{}
	source := &fakeSource{deployments: map[string]*Deployment{
		"dev-1": {IntentID: "int-1", ConfigurationHash: HashConfiguration("vlan 10\n")},
	}}
	d := NewDetector(source, bus, zap.NewNop())

	checked, drifted, err := d.Evaluate(context.Background(), testSnapshot("dev-1", "vlan 20\n"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !checked || !drifted {
		t.Fatalf("checked=%v drifted=%v, want true true", checked, drifted)
	}

	topics := bus.topics()
	if len(topics) != 1 || topics[0] != TopicDriftDetected {
		t.Fatalf("topics = %v, want [%s]", topics, TopicDriftDetected)
	}

	drift, ok := bus.events[0].Payload.(*DriftEvent)
	if !ok {
		t.Fatalf("payload type = %T, want *DriftEvent", bus.events[0].Payload)
	}
	if drift.IntentID != "int-1" || drift.DeviceID != "dev-1" {
		t.Errorf("event = %+v", drift)
	}
	if drift.ObservedHash == drift.ExpectedHash {
		t.Error("observed and expected hashes should differ")
	}
}

// TestEvaluateMatchPublishesReconciled verifies the auto-resolve signal.
func TestEvaluateMatchPublishesReconciled(t *testing.T) {
	bus := &captureBus{}
	source := &fakeSource{deployments: map[string]*Deployment{
		"dev-1": {IntentID: "int-1", ConfigurationHash: HashConfiguration("vlan 10\n")},
	}}
	d := NewDetector(source, bus, zap.NewNop())

	// Cosmetically different payload, same canonical hash.
	checked, drifted, err := d.Evaluate(context.Background(), testSnapshot("dev-1", "vlan 10\r\n"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !checked || drifted {
		t.Fatalf("checked=%v drifted=%v, want true false", checked, drifted)
	}

	topics := bus.topics()
	if len(topics) != 1 || topics[0] != TopicDriftReconciled {
		t.Errorf("topics = %v, want [%s]", topics, TopicDriftReconciled)
	}
}

// TestEvaluateNilSourceSkips verifies behavior before wiring.
func TestEvaluateNilSourceSkips(t *testing.T) {
	bus := &captureBus{}
	d := NewDetector(nil, bus, zap.NewNop())

	checked, _, err := d.Evaluate(context.Background(), testSnapshot("dev-1", "vlan 10\n"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if checked {
		t.Error("expected skip with nil source")
	}
}

// TestEvaluateSourceError verifies errors are surfaced, not published.
func TestEvaluateSourceError(t *testing.T) {
	bus := &captureBus{}
	d := NewDetector(&fakeSource{err: errors.New("boom")}, bus, zap.NewNop())

	_, _, err := d.Evaluate(context.Background(), testSnapshot("dev-1", "vlan 10\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(bus.topics()) != 0 {
		t.Errorf("expected no events on error, got %v", bus.topics())
	}
}
