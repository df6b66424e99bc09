package snapshot

import (
	"context"
	"testing"

	"github.com/HerbHall/netweave/internal/store"
	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// fakeFetcher returns a fixed configuration per device.
type fakeFetcher struct {
	configs map[string]string
}

func (f *fakeFetcher) FetchConfiguration(_ context.Context, deviceID string) (string, error) {
	return f.configs[deviceID], nil
}

func newTestModule(t *testing.T) *Module {
	t.Helper()

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	m := New()
	deps := plugin.Dependencies{
		Logger: zap.NewNop(),
		Store:  s,
		Bus:    &captureBus{},
	}
	if err := m.Init(context.Background(), deps); err != nil {
		t.Fatalf("init: %v", err)
	}
	return m
}

// TestHandleDeploymentTriggersRecheck verifies that a deploy captures a
// fresh snapshot with the drift_recheck cause when a fetcher is wired.
func TestHandleDeploymentTriggersRecheck(t *testing.T) {
	m := newTestModule(t)
	m.SetFetcher(&fakeFetcher{configs: map[string]string{"dev-1": "vlan 10\n"}}, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(context.Background())

	ctx := context.Background()
	m.HandleDeployment(ctx, "dev-1")

	snap, err := m.store.Latest(ctx, "dev-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot after deployment recheck, got none")
	}
	if snap.Cause != CauseDriftRecheck {
		t.Errorf("cause = %s, want %s", snap.Cause, CauseDriftRecheck)
	}
}

// TestHandleDeploymentWithoutFetcher verifies the no-op path.
func TestHandleDeploymentWithoutFetcher(t *testing.T) {
	m := newTestModule(t)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(context.Background())

	ctx := context.Background()
	m.HandleDeployment(ctx, "dev-1")

	snap, err := m.store.Latest(ctx, "dev-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap != nil {
		t.Errorf("expected no snapshot without a fetcher, got %+v", snap)
	}
}

// TestHandleDeploymentBeforeStart verifies the guard for an unstarted module.
func TestHandleDeploymentBeforeStart(t *testing.T) {
	m := newTestModule(t)
	// Must not panic: the service only exists after Start.
	m.HandleDeployment(context.Background(), "dev-1")
}
