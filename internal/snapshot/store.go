package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Capture causes.
const (
	CauseScheduled    = "scheduled"
	CauseManual       = "manual"
	CauseDriftRecheck = "drift_recheck"
)

// ValidCause reports whether c is a known capture cause.
func ValidCause(c string) bool {
	switch c {
	case CauseScheduled, CauseManual, CauseDriftRecheck:
		return true
	}
	return false
}

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is an immutable record of a device's configuration at a point
// in time. Rows are append-only.
type Snapshot struct {
	ID                string    `json:"id"`
	DeviceID          string    `json:"device_id"`
	IntentID          *string   `json:"intent_id,omitempty"`
	ConfigurationHash string    `json:"configuration_hash"`
	ConfigurationData string    `json:"configuration_data"`
	Cause             string    `json:"cause"`
	CreatedAt         time.Time `json:"created_at"`
}

// SnapshotStore provides database access for the snapshot module.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a SnapshotStore backed by the given database.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Insert appends a snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap *Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_snapshots (
			id, device_id, intent_id, configuration_hash, configuration_data, cause, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DeviceID, snap.IntentID, snap.ConfigurationHash,
		snap.ConfigurationData, snap.Cause, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// ListByDevice returns the most recent snapshots for a device, newest first.
func (s *SnapshotStore) ListByDevice(ctx context.Context, deviceID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, intent_id, configuration_hash, configuration_data, cause, created_at
		FROM config_snapshots
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ID, &snap.DeviceID, &snap.IntentID, &snap.ConfigurationHash,
			&snap.ConfigurationData, &snap.Cause, &snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Latest returns the most recent snapshot for a device, or nil, nil when
// the device has never been captured.
func (s *SnapshotStore) Latest(ctx context.Context, deviceID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, intent_id, configuration_hash, configuration_data, cause, created_at
		FROM config_snapshots
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		deviceID,
	)

	var snap Snapshot
	err := row.Scan(
		&snap.ID, &snap.DeviceID, &snap.IntentID, &snap.ConfigurationHash,
		&snap.ConfigurationData, &snap.Cause, &snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &snap, nil
}
