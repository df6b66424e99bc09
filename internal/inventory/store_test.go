package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/netweave/internal/store"
)

func newTestStore(t *testing.T) *DeviceStore {
	t.Helper()

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background(), "inventory", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewDeviceStore(s.DB())
}

func testDevice(id, name, status, ip string) *Device {
	now := time.Now().UTC()
	return &Device{
		ID:        id,
		Name:      name,
		Type:      TypeAccess,
		Status:    status,
		IPAddress: ip,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndGetDevice(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	want := testDevice("dev-1", "sw-access-01", StatusUnknown, "10.0.0.1")
	if err := ds.InsertDevice(ctx, want); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := ds.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected device, got nil")
	}
	if got.Name != want.Name || got.Type != want.Type || got.Status != want.Status {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	ds := newTestStore(t)

	got, err := ds.GetDevice(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing device, got %+v", got)
	}
}

func TestListProbeTargets(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	devices := []*Device{
		testDevice("dev-1", "core-01", StatusOnline, "10.0.0.1"),
		testDevice("dev-2", "core-02", StatusMaintenance, "10.0.0.2"),
		testDevice("dev-3", "core-03", StatusUnknown, ""),
	}
	for _, d := range devices {
		if err := ds.InsertDevice(ctx, d); err != nil {
			t.Fatalf("insert %s: %v", d.ID, err)
		}
	}

	targets, err := ds.ListProbeTargets(ctx)
	if err != nil {
		t.Fatalf("list probe targets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 probe target, got %d", len(targets))
	}
	if targets[0].ID != "dev-1" {
		t.Errorf("expected dev-1, got %s", targets[0].ID)
	}
}

func TestUpdateDeviceStatus(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	if err := ds.InsertDevice(ctx, testDevice("dev-1", "fw-01", StatusUnknown, "10.0.0.1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := ds.UpdateDeviceStatus(ctx, "dev-1", StatusOnline, time.Now().UTC())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated {
		t.Error("expected update to report success")
	}

	got, err := ds.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusOnline {
		t.Errorf("status = %s, want %s", got.Status, StatusOnline)
	}

	updated, err = ds.UpdateDeviceStatus(ctx, "missing", StatusOnline, time.Now().UTC())
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if updated {
		t.Error("expected update of missing device to report false")
	}
}
