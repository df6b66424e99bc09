package alert

import (
	"context"
	"sync"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// System resolution reasons used by auto-resolve paths.
const (
	ReasonHashReconciled   = "hash reconciled"
	ReasonThresholdCleared = "threshold cleared"
	ReasonDeviceRecovered  = "device recovered"
)

// Signal is a raised or re-raised condition from a detection source.
type Signal struct {
	DeviceID       string
	Type           string
	MetricType     string
	Severity       string
	Title          string
	Message        string
	ObservedValue  *float64
	ThresholdValue *float64
	IntentID       *string
}

// keyedMutex serializes work per dedup key. Entries are never removed;
// cardinality is bounded by devices x alert types x metric types.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Manager owns the alert lifecycle: dedup on raise, operator
// acknowledge/resolve, and system auto-resolution.
type Manager struct {
	store  *AlertStore
	bus    plugin.EventBus
	keys   *keyedMutex
	logger *zap.Logger
}

// NewManager creates an alert manager. bus may be nil in tests.
func NewManager(store *AlertStore, bus plugin.EventBus, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		bus:    bus,
		keys:   newKeyedMutex(),
		logger: logger,
	}
}

// Raise records a signal. An open alert with the same dedup key is
// refreshed in place; otherwise a new active alert is created. Returns
// the alert and whether it was newly created.
func (m *Manager) Raise(ctx context.Context, sig Signal) (*Alert, bool, error) {
	unlock := m.keys.Lock(DedupKey(sig.DeviceID, sig.Type, sig.MetricType))
	defer unlock()

	now := time.Now().UTC()

	existing, err := m.store.FindOpenByKey(ctx, sig.DeviceID, sig.Type, sig.MetricType)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		existing.Severity = sig.Severity
		existing.Message = sig.Message
		existing.ObservedValue = sig.ObservedValue
		existing.ThresholdValue = sig.ThresholdValue
		existing.UpdatedAt = now
		if err := m.store.Refresh(ctx, existing); err != nil {
			return nil, false, err
		}

		alertsRefreshed.WithLabelValues(sig.Type).Inc()
		m.publish(ctx, TopicUpdated, existing)
		return existing, false, nil
	}

	a := &Alert{
		ID:             uuid.NewString(),
		DeviceID:       sig.DeviceID,
		Type:           sig.Type,
		MetricType:     sig.MetricType,
		Severity:       sig.Severity,
		Status:         StatusActive,
		Title:          sig.Title,
		Message:        sig.Message,
		ObservedValue:  sig.ObservedValue,
		ThresholdValue: sig.ThresholdValue,
		IntentID:       sig.IntentID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.Insert(ctx, a); err != nil {
		return nil, false, err
	}

	alertsRaised.WithLabelValues(sig.Type).Inc()
	m.logger.Info("alert raised",
		zap.String("alert_id", a.ID),
		zap.String("device_id", a.DeviceID),
		zap.String("type", a.Type),
		zap.String("severity", a.Severity),
	)
	m.publish(ctx, TopicCreated, a)
	return a, true, nil
}

// Acknowledge moves an active alert to acknowledged.
func (m *Manager) Acknowledge(ctx context.Context, id, actor string) (*Alert, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, &InvalidTransitionError{Current: a.Status, Action: "acknowledge"}
	}

	now := time.Now().UTC()
	ok, err := m.store.Acknowledge(ctx, id, actor, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another acknowledge or a resolve.
		a, err = m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{Current: a.Status, Action: "acknowledge"}
	}

	a.Status = StatusAcknowledged
	a.AcknowledgedBy = &actor
	a.AcknowledgedAt = &now
	a.UpdatedAt = now

	m.publish(ctx, TopicAcknowledged, a)
	return a, nil
}

// Resolve closes an open alert with the given reason.
func (m *Manager) Resolve(ctx context.Context, id, reason string) (*Alert, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusResolved {
		return nil, &InvalidTransitionError{Current: a.Status, Action: "resolve"}
	}

	now := time.Now().UTC()
	ok, err := m.store.Resolve(ctx, id, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &InvalidTransitionError{Current: StatusResolved, Action: "resolve"}
	}

	a.Status = StatusResolved
	a.ResolvedAt = &now
	a.ResolutionReason = &reason
	a.UpdatedAt = now

	alertsResolved.WithLabelValues(a.Type).Inc()
	m.publish(ctx, TopicResolved, a)
	return a, nil
}

// ResolveByKey closes the open alert for a dedup key, if one exists.
// Used by auto-resolution: a missing alert is a no-op, not an error.
func (m *Manager) ResolveByKey(ctx context.Context, deviceID, alertType, metricType, reason string) (*Alert, error) {
	unlock := m.keys.Lock(DedupKey(deviceID, alertType, metricType))
	defer unlock()

	existing, err := m.store.FindOpenByKey(ctx, deviceID, alertType, metricType)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	return m.Resolve(ctx, existing.ID, reason)
}

// Get returns an alert by ID.
func (m *Manager) Get(ctx context.Context, id string) (*Alert, error) {
	return m.store.Get(ctx, id)
}

// List returns alerts matching the filter.
func (m *Manager) List(ctx context.Context, f ListFilter) ([]Alert, error) {
	return m.store.List(ctx, f)
}

// publish is synchronous so subscribers observe lifecycle events in the
// order they happened. Stream delivery never blocks here: the hub hands
// messages to buffered per-client queues and drops on overflow.
func (m *Manager) publish(ctx context.Context, topic string, a *Alert) {
	if m.bus == nil {
		return
	}
	err := m.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "alert",
		Timestamp: time.Now().UTC(),
		Payload:   a,
	})
	if err != nil {
		m.logger.Warn("failed to publish alert event",
			zap.String("topic", topic),
			zap.String("alert_id", a.ID),
			zap.Error(err),
		)
	}
}
