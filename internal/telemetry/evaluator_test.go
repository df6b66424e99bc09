package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/netweave/internal/store"
	"github.com/HerbHall/netweave/pkg/plugin"
	"github.com/google/uuid"
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

func (b *captureBus) last(t *testing.T) plugin.Event {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		t.Fatal("expected an event, got none")
	}
	return b.events[len(b.events)-1]
}

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func newTestStoreAndBus(t *testing.T) (*TelemetryStore, *captureBus, *Evaluator) {
	t.Helper()

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background(), "telemetry", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ts := NewTelemetryStore(s.DB())
	bus := &captureBus{}
	return ts, bus, NewEvaluator(ts, bus, zap.NewNop())
}

func insertThreshold(t *testing.T, ts *TelemetryStore, deviceID *string, metricType, operator string, warning, critical float64) *Threshold {
	t.Helper()

	now := time.Now().UTC()
	th := &Threshold{
		ID:            uuid.NewString(),
		DeviceID:      deviceID,
		MetricType:    metricType,
		Operator:      operator,
		WarningValue:  warning,
		CriticalValue: critical,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ts.InsertThreshold(context.Background(), th); err != nil {
		t.Fatalf("insert threshold: %v", err)
	}
	return th
}

func sample(deviceID, metricType string, value float64) *Metric {
	return &Metric{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		MetricType: metricType,
		Value:      value,
		Unit:       "%",
		RecordedAt: time.Now().UTC(),
	}
}

// TestEvaluateGreaterThan verifies the warning/critical breach outcomes
// and the clear outcome for a greater_than rule.
func TestEvaluateGreaterThan(t *testing.T) {
	tests := []struct {
		name         string
		value        float64
		wantTopic    string
		wantSeverity string
	}{
		{name: "above critical", value: 95, wantTopic: TopicThresholdBreached, wantSeverity: BreachSeverityCritical},
		{name: "above warning only", value: 85, wantTopic: TopicThresholdBreached, wantSeverity: BreachSeverityMedium},
		{name: "below both clears", value: 70, wantTopic: TopicThresholdCleared},
		{name: "at warning boundary clears", value: 80, wantTopic: TopicThresholdCleared},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, bus, ev := newTestStoreAndBus(t)
			insertThreshold(t, ts, nil, "cpu_usage", OpGreaterThan, 80, 90)

			if err := ev.Evaluate(context.Background(), sample("dev-1", "cpu_usage", tt.value)); err != nil {
				t.Fatalf("evaluate: %v", err)
			}

			event := bus.last(t)
			if event.Topic != tt.wantTopic {
				t.Fatalf("topic = %s, want %s", event.Topic, tt.wantTopic)
			}
			payload := event.Payload.(*ThresholdEvent)
			if payload.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", payload.Severity, tt.wantSeverity)
			}
		})
	}
}

// TestEvaluateLessThan verifies the symmetric less_than rule.
func TestEvaluateLessThan(t *testing.T) {
	ts, bus, ev := newTestStoreAndBus(t)
	insertThreshold(t, ts, nil, "free_memory", OpLessThan, 20, 10)

	if err := ev.Evaluate(context.Background(), sample("dev-1", "free_memory", 5)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	payload := bus.last(t).Payload.(*ThresholdEvent)
	if payload.Severity != BreachSeverityCritical {
		t.Errorf("severity = %q, want critical", payload.Severity)
	}

	if err := ev.Evaluate(context.Background(), sample("dev-1", "free_memory", 15)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	payload = bus.last(t).Payload.(*ThresholdEvent)
	if payload.Severity != BreachSeverityMedium {
		t.Errorf("severity = %q, want medium", payload.Severity)
	}
}

// TestEvaluateEquals verifies the equals rule.
func TestEvaluateEquals(t *testing.T) {
	ts, bus, ev := newTestStoreAndBus(t)
	insertThreshold(t, ts, nil, "bgp_state", OpEquals, 1, 0)

	if err := ev.Evaluate(context.Background(), sample("dev-1", "bgp_state", 0)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	payload := bus.last(t).Payload.(*ThresholdEvent)
	if payload.Severity != BreachSeverityCritical {
		t.Errorf("severity = %q, want critical", payload.Severity)
	}
}

// TestEvaluateNoRuleProducesNothing verifies that samples with no
// matching rule publish no events.
func TestEvaluateNoRuleProducesNothing(t *testing.T) {
	_, bus, ev := newTestStoreAndBus(t)

	if err := ev.Evaluate(context.Background(), sample("dev-1", "cpu_usage", 99)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if bus.count() != 0 {
		t.Errorf("expected no events, got %d", bus.count())
	}
}

// TestDeviceRuleShadowsFleetRule verifies device-specific precedence.
func TestDeviceRuleShadowsFleetRule(t *testing.T) {
	ts, bus, ev := newTestStoreAndBus(t)

	// Fleet-wide rule would fire at 85; the device rule is looser.
	insertThreshold(t, ts, nil, "cpu_usage", OpGreaterThan, 80, 90)
	dev := "dev-1"
	insertThreshold(t, ts, &dev, "cpu_usage", OpGreaterThan, 95, 99)

	if err := ev.Evaluate(context.Background(), sample("dev-1", "cpu_usage", 85)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	event := bus.last(t)
	if event.Topic != TopicThresholdCleared {
		t.Errorf("topic = %s, want cleared (device rule shadows fleet rule)", event.Topic)
	}

	// A different device still uses the fleet-wide rule.
	if err := ev.Evaluate(context.Background(), sample("dev-2", "cpu_usage", 85)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	event = bus.last(t)
	if event.Topic != TopicThresholdBreached {
		t.Errorf("topic = %s, want breached for fleet-wide rule", event.Topic)
	}
}

// TestDisabledRuleIgnored verifies that disabled rules do not evaluate.
func TestDisabledRuleIgnored(t *testing.T) {
	ts, bus, ev := newTestStoreAndBus(t)
	th := insertThreshold(t, ts, nil, "cpu_usage", OpGreaterThan, 80, 90)

	if err := ts.SetThresholdEnabled(context.Background(), th.ID, false, time.Now().UTC()); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if err := ev.Evaluate(context.Background(), sample("dev-1", "cpu_usage", 99)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if bus.count() != 0 {
		t.Errorf("expected no events for disabled rule, got %d", bus.count())
	}
}

// TestThresholdCreatorRetained verifies that the creator reference
// survives the insert/get round trip.
func TestThresholdCreatorRetained(t *testing.T) {
	ts, _, _ := newTestStoreAndBus(t)
	ctx := context.Background()

	now := time.Now().UTC()
	th := &Threshold{
		ID:            uuid.NewString(),
		MetricType:    "cpu_usage",
		Operator:      OpGreaterThan,
		WarningValue:  80,
		CriticalValue: 90,
		Enabled:       true,
		CreatedBy:     "alice",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ts.InsertThreshold(ctx, th); err != nil {
		t.Fatalf("insert threshold: %v", err)
	}

	got, err := ts.GetThreshold(ctx, th.ID)
	if err != nil {
		t.Fatalf("get threshold: %v", err)
	}
	if got.CreatedBy != "alice" {
		t.Errorf("created_by = %q, want %q", got.CreatedBy, "alice")
	}

	listed, err := ts.ListThresholds(ctx, "", "cpu_usage")
	if err != nil {
		t.Fatalf("list thresholds: %v", err)
	}
	if len(listed) != 1 || listed[0].CreatedBy != "alice" {
		t.Errorf("listed = %+v, want one row created by alice", listed)
	}
}

// TestValidateOrdering verifies the per-operator bound ordering rules.
func TestValidateOrdering(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		warning  float64
		critical float64
		wantErr  bool
	}{
		{name: "greater_than valid", operator: OpGreaterThan, warning: 80, critical: 90},
		{name: "greater_than inverted", operator: OpGreaterThan, warning: 90, critical: 80, wantErr: true},
		{name: "greater_than equal bounds", operator: OpGreaterThan, warning: 80, critical: 80, wantErr: true},
		{name: "less_than valid", operator: OpLessThan, warning: 20, critical: 10},
		{name: "less_than inverted", operator: OpLessThan, warning: 10, critical: 20, wantErr: true},
		{name: "equals valid", operator: OpEquals, warning: 1, critical: 0},
		{name: "equals identical bounds", operator: OpEquals, warning: 1, critical: 1, wantErr: true},
		{name: "unknown operator", operator: "between", warning: 1, critical: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := &Threshold{Operator: tt.operator, WarningValue: tt.warning, CriticalValue: tt.critical}
			err := th.ValidateOrdering()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOrdering() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
