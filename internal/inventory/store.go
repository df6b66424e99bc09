package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Device types matching the fleet taxonomy.
const (
	TypeCore         = "core"
	TypeDistribution = "distribution"
	TypeAccess       = "access"
	TypeFirewall     = "firewall"
	TypeRouter       = "router"
)

// Operational statuses.
const (
	StatusOnline      = "online"
	StatusOffline     = "offline"
	StatusMaintenance = "maintenance"
	StatusUnknown     = "unknown"
)

// ValidType reports whether t is a known device type.
func ValidType(t string) bool {
	switch t {
	case TypeCore, TypeDistribution, TypeAccess, TypeFirewall, TypeRouter:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known operational status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusOffline, StatusMaintenance, StatusUnknown:
		return true
	}
	return false
}

// Device represents a managed network device.
type Device struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Location   string    `json:"location,omitempty"`
	Model      string    `json:"model,omitempty"`
	Vendor     string    `json:"vendor,omitempty"`
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeviceStore provides database access for the inventory module.
type DeviceStore struct {
	db *sql.DB
}

// NewDeviceStore creates a DeviceStore backed by the given database.
func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

// InsertDevice inserts a new device.
func (s *DeviceStore) InsertDevice(ctx context.Context, d *Device) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_devices (
			id, name, type, status, ip_address, location, model, vendor, external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Type, d.Status, d.IPAddress, d.Location, d.Model, d.Vendor,
		d.ExternalID, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// GetDevice returns a device by ID. Returns nil, nil if not found.
func (s *DeviceStore) GetDevice(ctx context.Context, id string) (*Device, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, status, ip_address, location, model, vendor, external_id, created_at, updated_at
		FROM inventory_devices WHERE id = ?`,
		id,
	)
	return scanDevice(row)
}

// ListDevices returns all devices ordered by name.
func (s *DeviceStore) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, status, ip_address, location, model, vendor, external_id, created_at, updated_at
		FROM inventory_devices ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Type, &d.Status, &d.IPAddress, &d.Location,
			&d.Model, &d.Vendor, &d.ExternalID, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// ListProbeTargets returns devices eligible for status probing: those with a
// network address that are not in maintenance.
func (s *DeviceStore) ListProbeTargets(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, status, ip_address, location, model, vendor, external_id, created_at, updated_at
		FROM inventory_devices
		WHERE ip_address != '' AND status != ?
		ORDER BY name`,
		StatusMaintenance,
	)
	if err != nil {
		return nil, fmt.Errorf("list probe targets: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Type, &d.Status, &d.IPAddress, &d.Location,
			&d.Model, &d.Vendor, &d.ExternalID, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// UpdateDeviceStatus sets the operational status of a device.
// Returns false if the device does not exist.
func (s *DeviceStore) UpdateDeviceStatus(ctx context.Context, id, status string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_devices SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("update device status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update device status: %w", err)
	}
	return n > 0, nil
}

func scanDevice(row *sql.Row) (*Device, error) {
	var d Device
	err := row.Scan(
		&d.ID, &d.Name, &d.Type, &d.Status, &d.IPAddress, &d.Location,
		&d.Model, &d.Vendor, &d.ExternalID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &d, nil
}
