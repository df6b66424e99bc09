// Package intent implements the configuration intent lifecycle: a state
// machine from draft through review to deployment, with the per-device
// deployment record that drift detection compares against.
package intent

import (
	"context"

	"github.com/HerbHall/netweave/internal/snapshot"
	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin             = (*Module)(nil)
	_ plugin.HTTPProvider       = (*Module)(nil)
	_ snapshot.DeploymentSource = (*Module)(nil)
)

// Module implements the intent plugin.
type Module struct {
	store   *IntentStore
	service *Service
	logger  *zap.Logger
}

// New creates a new intent module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "intent",
		Version:     "0.1.0",
		Description: "Configuration intent lifecycle and deployment tracking",
		Required:    true,
		Roles:       []string{"intent"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	if err := deps.Store.Migrate(ctx, "intent", migrations()); err != nil {
		return err
	}
	m.store = NewIntentStore(deps.Store)
	m.service = NewService(m.store, deps.Bus, deps.Logger)

	m.logger.Info("intent module initialized")
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	return nil
}

// ActiveDeployment implements snapshot.DeploymentSource, exposing the
// expected configuration hash for a device.
func (m *Module) ActiveDeployment(ctx context.Context, deviceID string) (*snapshot.Deployment, error) {
	d, err := m.store.GetDeployment(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return &snapshot.Deployment{
		IntentID:          d.IntentID,
		ConfigurationHash: d.ConfigurationHash,
	}, nil
}
