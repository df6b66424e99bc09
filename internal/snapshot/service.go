package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoFetcher is returned when an on-demand capture is requested but no
// configuration fetcher has been wired.
var ErrNoFetcher = errors.New("no configuration fetcher configured")

// ConfigFetcher retrieves a device's current running configuration from the
// outside world (device poller, collector agent).
type ConfigFetcher interface {
	FetchConfiguration(ctx context.Context, deviceID string) (string, error)
}

// Service ingests snapshots and runs drift evaluation on each one.
type Service struct {
	store    *SnapshotStore
	detector *Detector
	fetcher  ConfigFetcher
	logger   *zap.Logger
}

// NewService creates the snapshot service. fetcher may be nil; on-demand
// and scheduled capture are then unavailable, ingestion still works.
func NewService(store *SnapshotStore, detector *Detector, fetcher ConfigFetcher, logger *zap.Logger) *Service {
	return &Service{store: store, detector: detector, fetcher: fetcher, logger: logger}
}

// Ingest canonicalizes and hashes a configuration payload, appends the
// snapshot, and evaluates drift. The stored hash is always computed here;
// client-supplied hashes are never trusted.
func (s *Service) Ingest(ctx context.Context, deviceID, configuration, cause string) (*Snapshot, error) {
	snap := &Snapshot{
		ID:                uuid.NewString(),
		DeviceID:          deviceID,
		ConfigurationHash: HashConfiguration(configuration),
		ConfigurationData: configuration,
		Cause:             cause,
		CreatedAt:         time.Now().UTC(),
	}

	// Record the intent believed to be in effect at capture time.
	dep, depErr := s.detector.ActiveDeployment(ctx, deviceID)
	if dep != nil {
		snap.IntentID = &dep.IntentID
	}

	if err := s.store.Insert(ctx, snap); err != nil {
		return nil, err
	}

	if depErr != nil {
		// The snapshot is already stored; drift evaluation will run again
		// on the next capture.
		s.logger.Warn("drift evaluation failed",
			zap.String("device_id", deviceID),
			zap.Error(depErr),
		)
	} else {
		s.detector.evaluate(ctx, snap, dep)
	}
	return snap, nil
}

// Recheck fetches a device's configuration on demand and ingests it with
// the drift_recheck cause.
func (s *Service) Recheck(ctx context.Context, deviceID string) (*Snapshot, error) {
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}

	// Fetch happens outside any lock or transaction.
	configuration, err := s.fetcher.FetchConfiguration(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, deviceID, configuration, CauseDriftRecheck)
}

// ListByDevice returns recent snapshots for a device.
func (s *Service) ListByDevice(ctx context.Context, deviceID string, limit int) ([]Snapshot, error) {
	return s.store.ListByDevice(ctx, deviceID, limit)
}

// Latest returns the most recent snapshot for a device.
func (s *Service) Latest(ctx context.Context, deviceID string) (*Snapshot, error) {
	return s.store.Latest(ctx, deviceID)
}
