// Package telemetry ingests metric samples and evaluates them against
// configurable warning/critical thresholds.
package telemetry

import (
	"context"

	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Module implements the telemetry plugin.
type Module struct {
	store     *TelemetryStore
	evaluator *Evaluator
	logger    *zap.Logger
}

// New creates a new telemetry module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "telemetry",
		Version:     "0.1.0",
		Description: "Metric ingestion and threshold evaluation",
		Required:    true,
		Roles:       []string{"telemetry"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	if err := deps.Store.Migrate(ctx, "telemetry", migrations()); err != nil {
		return err
	}
	m.store = NewTelemetryStore(deps.Store.DB())
	m.evaluator = NewEvaluator(m.store, deps.Bus, deps.Logger)

	m.logger.Info("telemetry module initialized")
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	return nil
}
