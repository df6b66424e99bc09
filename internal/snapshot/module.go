// Package snapshot records device configuration snapshots and detects
// drift between what a device is running and what its deployed intent
// says it should be running.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// SnapshotConfig holds the snapshot module settings.
type SnapshotConfig struct {
	CaptureEnabled  bool          `mapstructure:"capture_enabled"`
	CaptureInterval time.Duration `mapstructure:"capture_interval"`
	MaxWorkers      int           `mapstructure:"max_workers"`
}

// DefaultConfig returns the default snapshot settings.
func DefaultConfig() SnapshotConfig {
	return SnapshotConfig{
		CaptureEnabled:  false,
		CaptureInterval: 15 * time.Minute,
		MaxWorkers:      5,
	}
}

// Module implements the snapshot plugin.
type Module struct {
	store     *SnapshotStore
	detector  *Detector
	service   *Service
	scheduler *CaptureScheduler
	cfg       SnapshotConfig
	bus       plugin.EventBus
	logger    *zap.Logger

	// Collaborators wired by the composition root before Start.
	source  DeploymentSource
	fetcher ConfigFetcher
	targets TargetLister
}

// New creates a new snapshot module instance.
func New() *Module {
	return &Module{}
}

// SetDeploymentSource wires the expected-hash supplier. Must be called
// before Start; without it every drift evaluation is skipped.
func (m *Module) SetDeploymentSource(source DeploymentSource) {
	m.source = source
}

// SetFetcher wires the external configuration fetcher used for scheduled
// capture and on-demand rechecks. Optional.
func (m *Module) SetFetcher(fetcher ConfigFetcher, targets TargetLister) {
	m.fetcher = fetcher
	m.targets = targets
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "snapshot",
		Version:     "0.1.0",
		Description: "Configuration snapshots and drift detection",
		Required:    true,
		Roles:       []string{"snapshot"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if err := deps.Store.Migrate(ctx, "snapshot", migrations()); err != nil {
		return err
	}
	m.store = NewSnapshotStore(deps.Store.DB())

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return err
		}
	}
	if m.cfg.CaptureInterval <= 0 {
		m.cfg.CaptureInterval = DefaultConfig().CaptureInterval
	}
	if m.cfg.MaxWorkers <= 0 {
		m.cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}

	m.logger.Info("snapshot module initialized")
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.detector = NewDetector(m.source, m.bus, m.logger)
	m.service = NewService(m.store, m.detector, m.fetcher, m.logger)

	if m.cfg.CaptureEnabled && m.fetcher != nil && m.targets != nil {
		m.scheduler = NewCaptureScheduler(m.service, m.targets, m.cfg.CaptureInterval, m.cfg.MaxWorkers, m.logger)
		m.scheduler.Start(ctx)
		m.logger.Info("snapshot capture scheduler started",
			zap.Duration("interval", m.cfg.CaptureInterval),
		)
	}
	return nil
}

// HandleDeployment captures a fresh snapshot for a device right after a
// deploy, so drift (or reconciliation) is observed without waiting for
// the next scheduled capture. A missing fetcher makes this a no-op.
func (m *Module) HandleDeployment(ctx context.Context, deviceID string) {
	if m.service == nil {
		return
	}
	if _, err := m.service.Recheck(ctx, deviceID); err != nil {
		if errors.Is(err, ErrNoFetcher) {
			return
		}
		m.logger.Warn("post-deploy recheck failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	m.logger.Info("snapshot module stopped")
	return nil
}
