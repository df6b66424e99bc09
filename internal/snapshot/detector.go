package snapshot

import (
	"context"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Deployment is the expected configuration for a device, as recorded by the
// most recent deploy.
type Deployment struct {
	IntentID          string
	ConfigurationHash string
}

// DeploymentSource supplies the expected configuration hash per device.
// Returns nil, nil when the device has no deployment.
type DeploymentSource interface {
	ActiveDeployment(ctx context.Context, deviceID string) (*Deployment, error)
}

// Detector compares observed snapshots against expected deployments and
// publishes drift signals.
type Detector struct {
	source DeploymentSource
	bus    plugin.EventBus
	logger *zap.Logger
}

// NewDetector creates a drift detector. source may be nil, in which case
// evaluation is skipped entirely.
func NewDetector(source DeploymentSource, bus plugin.EventBus, logger *zap.Logger) *Detector {
	return &Detector{source: source, bus: bus, logger: logger}
}

// ActiveDeployment returns the expected deployment for a device, or
// nil, nil when the device has none or no source is wired.
func (d *Detector) ActiveDeployment(ctx context.Context, deviceID string) (*Deployment, error) {
	if d.source == nil {
		return nil, nil
	}
	return d.source.ActiveDeployment(ctx, deviceID)
}

// Evaluate checks one snapshot against the device's expected hash.
// Devices with no deployment are skipped silently: there is nothing to
// drift from. Returns whether a comparison happened and whether it found
// a mismatch.
func (d *Detector) Evaluate(ctx context.Context, snap *Snapshot) (checked, drifted bool, err error) {
	dep, err := d.ActiveDeployment(ctx, snap.DeviceID)
	if err != nil {
		return false, false, err
	}
	checked, drifted = d.evaluate(ctx, snap, dep)
	return checked, drifted, nil
}

// evaluate compares a snapshot against a pre-fetched deployment.
func (d *Detector) evaluate(ctx context.Context, snap *Snapshot, dep *Deployment) (checked, drifted bool) {
	if dep == nil {
		return false, false
	}

	drifted = snap.ConfigurationHash != dep.ConfigurationHash
	event := &DriftEvent{
		DeviceID:     snap.DeviceID,
		IntentID:     dep.IntentID,
		ObservedHash: snap.ConfigurationHash,
		ExpectedHash: dep.ConfigurationHash,
	}

	topic := TopicDriftReconciled
	if drifted {
		topic = TopicDriftDetected
		d.logger.Warn("configuration drift detected",
			zap.String("device_id", snap.DeviceID),
			zap.String("intent_id", dep.IntentID),
			zap.String("observed", snap.ConfigurationHash),
			zap.String("expected", dep.ConfigurationHash),
		)
	}

	if d.bus != nil {
		d.bus.PublishAsync(ctx, plugin.Event{
			Topic:     topic,
			Source:    "snapshot",
			Timestamp: time.Now().UTC(),
			Payload:   event,
		})
	}
	return true, drifted
}
