// Package inventory manages the network device registry and its
// reachability probe.
package inventory

import (
	"context"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// InventoryConfig holds the inventory module settings.
type InventoryConfig struct {
	ProbeEnabled  bool          `mapstructure:"probe_enabled"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	PingTimeout   time.Duration `mapstructure:"ping_timeout"`
	PingCount     int           `mapstructure:"ping_count"`
	MaxWorkers    int           `mapstructure:"max_workers"`
}

// DefaultConfig returns the default inventory settings.
func DefaultConfig() InventoryConfig {
	return InventoryConfig{
		ProbeEnabled:  true,
		ProbeInterval: 60 * time.Second,
		PingTimeout:   5 * time.Second,
		PingCount:     3,
		MaxWorkers:    10,
	}
}

// Module implements the inventory plugin.
type Module struct {
	store     *DeviceStore
	bus       plugin.EventBus
	cfg       InventoryConfig
	scheduler *StatusScheduler
	logger    *zap.Logger
}

// New creates a new inventory module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "inventory",
		Version:     "0.1.0",
		Description: "Network device registry and reachability probing",
		Required:    true,
		Roles:       []string{"inventory"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if err := deps.Store.Migrate(ctx, "inventory", migrations()); err != nil {
		return err
	}
	m.store = NewDeviceStore(deps.Store.DB())

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return err
		}
	}
	if m.cfg.ProbeInterval <= 0 {
		m.cfg.ProbeInterval = DefaultConfig().ProbeInterval
	}
	if m.cfg.MaxWorkers <= 0 {
		m.cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}

	m.logger.Info("inventory module initialized")
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	if !m.cfg.ProbeEnabled {
		m.logger.Info("device probing disabled")
		return nil
	}

	prober := NewProber(m.cfg.PingTimeout, m.cfg.PingCount, m.logger)
	m.scheduler = NewStatusScheduler(m.store, prober, m.publishStatusChange,
		m.cfg.ProbeInterval, m.cfg.MaxWorkers, m.logger)
	m.scheduler.Start(ctx)

	m.logger.Info("inventory module started",
		zap.Duration("probe_interval", m.cfg.ProbeInterval),
	)
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	m.logger.Info("inventory module stopped")
	return nil
}

// Store exposes the device store to the composition root for adapter wiring.
func (m *Module) Store() *DeviceStore {
	return m.store
}

func (m *Module) publishStatusChange(ctx context.Context, d Device, oldStatus, newStatus string) {
	if m.bus == nil {
		return
	}
	m.bus.PublishAsync(ctx, plugin.Event{
		Topic:     TopicDeviceStatusChanged,
		Source:    "inventory",
		Timestamp: time.Now().UTC(),
		Payload: &DeviceStatusEvent{
			DeviceID:  d.ID,
			Name:      d.Name,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
}
