package intent

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/netweave/pkg/plugin"
)

// Intent is a declared configuration change for a device.
type Intent struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Type              string     `json:"intent_type"`
	Status            Status     `json:"status"`
	DeviceID          string     `json:"device_id"`
	Configuration     string     `json:"configuration"`
	ConfigurationHash string     `json:"configuration_hash"`
	CreatedBy         string     `json:"created_by"`
	ApprovedBy        *string    `json:"approved_by,omitempty"`
	DeployedAt        *time.Time `json:"deployed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Deployment records the configuration a device is expected to be running.
// One row per device, replaced on each deploy.
type Deployment struct {
	DeviceID          string    `json:"device_id"`
	IntentID          string    `json:"intent_id"`
	ConfigurationHash string    `json:"configuration_hash"`
	DeployedAt        time.Time `json:"deployed_at"`
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	Status   Status
	Type     string
	DeviceID string
}

// IntentStore provides database access for the intent module.
type IntentStore struct {
	db *sql.DB
	st plugin.Store
}

// NewIntentStore creates an IntentStore backed by the shared store.
func NewIntentStore(st plugin.Store) *IntentStore {
	return &IntentStore{db: st.DB(), st: st}
}

const intentColumns = `id, title, description, intent_type, status, device_id,
	configuration, configuration_hash, created_by, approved_by, deployed_at,
	created_at, updated_at`

// Insert stores a new intent.
func (s *IntentStore) Insert(ctx context.Context, it *Intent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intents (`+intentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Title, it.Description, it.Type, it.Status, it.DeviceID,
		it.Configuration, it.ConfigurationHash, it.CreatedBy, it.ApprovedBy,
		it.DeployedAt, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

// Get returns an intent by ID, or ErrNotFound.
func (s *IntentStore) Get(ctx context.Context, id string) (*Intent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM intents WHERE id = ?`, id)

	var it Intent
	err := row.Scan(
		&it.ID, &it.Title, &it.Description, &it.Type, &it.Status, &it.DeviceID,
		&it.Configuration, &it.ConfigurationHash, &it.CreatedBy, &it.ApprovedBy,
		&it.DeployedAt, &it.CreatedAt, &it.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get intent: %w", err)
	}
	return &it, nil
}

// List returns intents matching the filter, newest first.
func (s *IntentStore) List(ctx context.Context, f ListFilter) ([]Intent, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		conds = append(conds, "intent_type = ?")
		args = append(args, f.Type)
	}
	if f.DeviceID != "" {
		conds = append(conds, "device_id = ?")
		args = append(args, f.DeviceID)
	}

	query := `SELECT ` + intentColumns + ` FROM intents`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer rows.Close()

	var intents []Intent
	for rows.Next() {
		var it Intent
		if err := rows.Scan(
			&it.ID, &it.Title, &it.Description, &it.Type, &it.Status, &it.DeviceID,
			&it.Configuration, &it.ConfigurationHash, &it.CreatedBy, &it.ApprovedBy,
			&it.DeployedAt, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan intent row: %w", err)
		}
		intents = append(intents, it)
	}
	return intents, rows.Err()
}

// TransitionStatus moves an intent from one status to another. The WHERE
// clause on the current status makes the update a compare-and-swap: a
// false return means another transition landed first.
func (s *IntentStore) TransitionStatus(ctx context.Context, id string, from, to Status, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE intents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, now, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition intent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition intent: %w", err)
	}
	return n > 0, nil
}

// Approve moves a pending intent to approved, recording the approver.
func (s *IntentStore) Approve(ctx context.Context, id, actor string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE intents SET status = ?, approved_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusApproved, actor, now, id, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("approve intent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve intent: %w", err)
	}
	return n > 0, nil
}

// Deploy moves an approved intent to deployed and replaces the device's
// deployment record. Both writes happen in one transaction so the expected
// hash can never point at a half-deployed intent.
func (s *IntentStore) Deploy(ctx context.Context, it *Intent, now time.Time) (bool, error) {
	var won bool
	err := s.st.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE intents SET status = ?, deployed_at = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			StatusDeployed, now, now, it.ID, StatusApproved,
		)
		if err != nil {
			return fmt.Errorf("deploy intent: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deploy intent: %w", err)
		}
		if n == 0 {
			return nil
		}
		won = true

		_, err = tx.ExecContext(ctx, `
			INSERT INTO intent_deployments (device_id, intent_id, configuration_hash, deployed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(device_id) DO UPDATE SET
				intent_id = excluded.intent_id,
				configuration_hash = excluded.configuration_hash,
				deployed_at = excluded.deployed_at`,
			it.DeviceID, it.ID, it.ConfigurationHash, now,
		)
		if err != nil {
			return fmt.Errorf("upsert deployment: %w", err)
		}
		return nil
	})
	return won, err
}

// GetDeployment returns the deployment record for a device, or nil, nil
// when the device has never had an intent deployed.
func (s *IntentStore) GetDeployment(ctx context.Context, deviceID string) (*Deployment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_id, intent_id, configuration_hash, deployed_at
		FROM intent_deployments WHERE device_id = ?`,
		deviceID,
	)

	var d Deployment
	err := row.Scan(&d.DeviceID, &d.IntentID, &d.ConfigurationHash, &d.DeployedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get deployment: %w", err)
	}
	return &d, nil
}
