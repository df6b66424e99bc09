package telemetry

import (
	"context"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Evaluator checks metric samples against their matching thresholds and
// publishes breach or clear signals.
type Evaluator struct {
	store  *TelemetryStore
	bus    plugin.EventBus
	logger *zap.Logger
}

// NewEvaluator creates a threshold evaluator. bus may be nil in tests.
func NewEvaluator(store *TelemetryStore, bus plugin.EventBus, logger *zap.Logger) *Evaluator {
	return &Evaluator{store: store, bus: bus, logger: logger}
}

// Evaluate produces exactly one outcome for a sample: the worst breach
// across the matching rules, or a clear signal when rules exist but none
// breach. Samples with no matching rule produce nothing.
func (e *Evaluator) Evaluate(ctx context.Context, m *Metric) error {
	thresholds, err := e.store.MatchingThresholds(ctx, m.DeviceID, m.MetricType)
	if err != nil {
		return err
	}
	if len(thresholds) == 0 {
		return nil
	}

	var (
		worst          string
		worstThreshold *Threshold
		worstBound     float64
	)
	for i := range thresholds {
		t := &thresholds[i]
		sev, bound := breach(t, m.Value)
		if sev == "" {
			continue
		}
		if worst == "" || (sev == BreachSeverityCritical && worst == BreachSeverityMedium) {
			worst = sev
			worstThreshold = t
			worstBound = bound
		}
	}

	event := &ThresholdEvent{
		DeviceID:   m.DeviceID,
		MetricType: m.MetricType,
		Value:      m.Value,
		Unit:       m.Unit,
	}
	topic := TopicThresholdCleared

	if worst != "" {
		topic = TopicThresholdBreached
		event.Severity = worst
		event.Operator = worstThreshold.Operator
		event.ThresholdValue = worstBound
		event.ThresholdID = worstThreshold.ID

		e.logger.Warn("metric threshold breached",
			zap.String("device_id", m.DeviceID),
			zap.String("metric_type", m.MetricType),
			zap.Float64("value", m.Value),
			zap.String("severity", worst),
		)
	}

	if e.bus != nil {
		e.bus.PublishAsync(ctx, plugin.Event{
			Topic:     topic,
			Source:    "telemetry",
			Timestamp: time.Now().UTC(),
			Payload:   event,
		})
	}
	return nil
}

// breach returns the severity a value triggers under one rule, with the
// bound that was crossed. Critical is checked first: it always wins over
// warning when both match.
func breach(t *Threshold, value float64) (severity string, bound float64) {
	switch t.Operator {
	case OpGreaterThan:
		if value > t.CriticalValue {
			return BreachSeverityCritical, t.CriticalValue
		}
		if value > t.WarningValue {
			return BreachSeverityMedium, t.WarningValue
		}
	case OpLessThan:
		if value < t.CriticalValue {
			return BreachSeverityCritical, t.CriticalValue
		}
		if value < t.WarningValue {
			return BreachSeverityMedium, t.WarningValue
		}
	case OpEquals:
		if value == t.CriticalValue {
			return BreachSeverityCritical, t.CriticalValue
		}
		if value == t.WarningValue {
			return BreachSeverityMedium, t.WarningValue
		}
	}
	return "", 0
}
