// Package alert is the single sink for detection signals. Drift,
// threshold, and device status events become deduplicated alerts with an
// operator-facing lifecycle.
package alert

import (
	"context"
	"fmt"

	"github.com/HerbHall/netweave/internal/inventory"
	"github.com/HerbHall/netweave/internal/snapshot"
	"github.com/HerbHall/netweave/internal/telemetry"
	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module implements the alert plugin.
type Module struct {
	store   *AlertStore
	manager *Manager
	bus     plugin.EventBus
	logger  *zap.Logger

	unsubscribe []func()
}

// New creates a new alert module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "alert",
		Version:     "0.1.0",
		Description: "Alert lifecycle, deduplication, and auto-resolution",
		Required:    true,
		Roles:       []string{"alert"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if err := deps.Store.Migrate(ctx, "alert", migrations()); err != nil {
		return err
	}
	m.store = NewAlertStore(deps.Store.DB())
	m.manager = NewManager(m.store, deps.Bus, deps.Logger)

	m.logger.Info("alert module initialized")
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.unsubscribe = []func(){
		m.bus.Subscribe(snapshot.TopicDriftDetected, m.onDriftDetected),
		m.bus.Subscribe(snapshot.TopicDriftReconciled, m.onDriftReconciled),
		m.bus.Subscribe(telemetry.TopicThresholdBreached, m.onThresholdBreached),
		m.bus.Subscribe(telemetry.TopicThresholdCleared, m.onThresholdCleared),
		m.bus.Subscribe(inventory.TopicDeviceStatusChanged, m.onDeviceStatusChanged),
	}
	m.logger.Info("alert module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
	m.logger.Info("alert module stopped")
	return nil
}

// Manager exposes the alert manager to the composition root.
func (m *Module) Manager() *Manager {
	return m.manager
}

func (m *Module) onDriftDetected(ctx context.Context, event plugin.Event) {
	drift, ok := event.Payload.(*snapshot.DriftEvent)
	if !ok {
		m.logger.Warn("unexpected payload on drift topic", zap.String("topic", event.Topic))
		return
	}

	intentID := drift.IntentID
	_, _, err := m.manager.Raise(ctx, Signal{
		DeviceID:   drift.DeviceID,
		Type:       TypeConfigurationDrift,
		Severity:   SeverityHigh,
		Title:      "Configuration drift detected",
		Message: fmt.Sprintf("observed %s, expected %s from intent %s",
			drift.ObservedHash, drift.ExpectedHash, drift.IntentID),
		IntentID: &intentID,
	})
	if err != nil {
		m.logger.Error("failed to raise drift alert",
			zap.String("device_id", drift.DeviceID), zap.Error(err))
	}
}

func (m *Module) onDriftReconciled(ctx context.Context, event plugin.Event) {
	drift, ok := event.Payload.(*snapshot.DriftEvent)
	if !ok {
		m.logger.Warn("unexpected payload on drift topic", zap.String("topic", event.Topic))
		return
	}

	if _, err := m.manager.ResolveByKey(ctx, drift.DeviceID, TypeConfigurationDrift, "", ReasonHashReconciled); err != nil {
		m.logger.Error("failed to auto-resolve drift alert",
			zap.String("device_id", drift.DeviceID), zap.Error(err))
	}
}

func (m *Module) onThresholdBreached(ctx context.Context, event plugin.Event) {
	breach, ok := event.Payload.(*telemetry.ThresholdEvent)
	if !ok {
		m.logger.Warn("unexpected payload on threshold topic", zap.String("topic", event.Topic))
		return
	}

	observed := breach.Value
	bound := breach.ThresholdValue
	_, _, err := m.manager.Raise(ctx, Signal{
		DeviceID:   breach.DeviceID,
		Type:       TypeThresholdBreach,
		MetricType: breach.MetricType,
		Severity:   breach.Severity,
		Title:      fmt.Sprintf("%s threshold breached", breach.MetricType),
		Message: fmt.Sprintf("%s is %.2f%s (%s %.2f)",
			breach.MetricType, breach.Value, breach.Unit, breach.Operator, breach.ThresholdValue),
		ObservedValue:  &observed,
		ThresholdValue: &bound,
	})
	if err != nil {
		m.logger.Error("failed to raise threshold alert",
			zap.String("device_id", breach.DeviceID), zap.Error(err))
	}
}

func (m *Module) onThresholdCleared(ctx context.Context, event plugin.Event) {
	cleared, ok := event.Payload.(*telemetry.ThresholdEvent)
	if !ok {
		m.logger.Warn("unexpected payload on threshold topic", zap.String("topic", event.Topic))
		return
	}

	if _, err := m.manager.ResolveByKey(ctx, cleared.DeviceID, TypeThresholdBreach, cleared.MetricType, ReasonThresholdCleared); err != nil {
		m.logger.Error("failed to auto-resolve threshold alert",
			zap.String("device_id", cleared.DeviceID), zap.Error(err))
	}
}

func (m *Module) onDeviceStatusChanged(ctx context.Context, event plugin.Event) {
	change, ok := event.Payload.(*inventory.DeviceStatusEvent)
	if !ok {
		m.logger.Warn("unexpected payload on device status topic", zap.String("topic", event.Topic))
		return
	}

	switch change.NewStatus {
	case inventory.StatusOffline:
		_, _, err := m.manager.Raise(ctx, Signal{
			DeviceID: change.DeviceID,
			Type:     TypeDeviceStatus,
			Severity: SeverityHigh,
			Title:    "Device unreachable",
			Message:  fmt.Sprintf("%s went from %s to offline", change.Name, change.OldStatus),
		})
		if err != nil {
			m.logger.Error("failed to raise device status alert",
				zap.String("device_id", change.DeviceID), zap.Error(err))
		}
	case inventory.StatusOnline:
		if _, err := m.manager.ResolveByKey(ctx, change.DeviceID, TypeDeviceStatus, "", ReasonDeviceRecovered); err != nil {
			m.logger.Error("failed to auto-resolve device status alert",
				zap.String("device_id", change.DeviceID), zap.Error(err))
		}
	}
}
