package alert

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Alert types.
const (
	TypeConfigurationDrift = "configuration_drift"
	TypeThresholdBreach    = "threshold_breach"
	TypeDeviceStatus       = "device_status"
)

// Severities, from least to most urgent.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Lifecycle statuses.
const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return true
	}
	return false
}

// Alert is a raised condition on a device.
type Alert struct {
	ID               string     `json:"id"`
	DeviceID         string     `json:"device_id"`
	Type             string     `json:"alert_type"`
	MetricType       string     `json:"metric_type,omitempty"`
	Severity         string     `json:"severity"`
	Status           string     `json:"status"`
	Title            string     `json:"title"`
	Message          string     `json:"message,omitempty"`
	ObservedValue    *float64   `json:"observed_value,omitempty"`
	ThresholdValue   *float64   `json:"threshold_value,omitempty"`
	IntentID         *string    `json:"intent_id,omitempty"`
	AcknowledgedBy   *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolutionReason *string    `json:"resolution_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DedupKey identifies the condition an alert represents. One open alert
// per key at a time.
func (a *Alert) DedupKey() string {
	return DedupKey(a.DeviceID, a.Type, a.MetricType)
}

// DedupKey composes the dedup key for a device, alert type, and metric.
func DedupKey(deviceID, alertType, metricType string) string {
	return deviceID + "|" + alertType + "|" + metricType
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	DeviceID string
	Type     string
	Severity string
	Status   string
}

// AlertStore provides database access for the alert module.
type AlertStore struct {
	db *sql.DB
}

// NewAlertStore creates an AlertStore backed by the given database.
func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

const alertColumns = `id, device_id, alert_type, metric_type, severity, status,
	title, message, observed_value, threshold_value, intent_id,
	acknowledged_by, acknowledged_at, resolved_at, resolution_reason,
	created_at, updated_at`

func scanAlert(row interface{ Scan(...any) error }) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID, &a.DeviceID, &a.Type, &a.MetricType, &a.Severity, &a.Status,
		&a.Title, &a.Message, &a.ObservedValue, &a.ThresholdValue, &a.IntentID,
		&a.AcknowledgedBy, &a.AcknowledgedAt, &a.ResolvedAt, &a.ResolutionReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Insert stores a new alert.
func (s *AlertStore) Insert(ctx context.Context, a *Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, a.Type, a.MetricType, a.Severity, a.Status,
		a.Title, a.Message, a.ObservedValue, a.ThresholdValue, a.IntentID,
		a.AcknowledgedBy, a.AcknowledgedAt, a.ResolvedAt, a.ResolutionReason,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Get returns an alert by ID, or ErrNotFound.
func (s *AlertStore) Get(ctx context.Context, id string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// FindOpenByKey returns the unresolved alert for a dedup key, or nil, nil.
// Acknowledged alerts count as open: the condition is still standing.
func (s *AlertStore) FindOpenByKey(ctx context.Context, deviceID, alertType, metricType string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE device_id = ? AND alert_type = ? AND metric_type = ? AND status != ?
		ORDER BY created_at DESC LIMIT 1`,
		deviceID, alertType, metricType, StatusResolved,
	)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return a, nil
}

// List returns alerts matching the filter, newest first.
func (s *AlertStore) List(ctx context.Context, f ListFilter) ([]Alert, error) {
	var conds []string
	var args []any
	if f.DeviceID != "" {
		conds = append(conds, "device_id = ?")
		args = append(args, f.DeviceID)
	}
	if f.Type != "" {
		conds = append(conds, "alert_type = ?")
		args = append(args, f.Type)
	}
	if f.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// Refresh updates the observation fields of an open alert.
func (s *AlertStore) Refresh(ctx context.Context, a *Alert) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET severity = ?, message = ?, observed_value = ?, threshold_value = ?, updated_at = ?
		WHERE id = ?`,
		a.Severity, a.Message, a.ObservedValue, a.ThresholdValue, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("refresh alert: %w", err)
	}
	return nil
}

// Acknowledge moves an active alert to acknowledged. The CAS on status
// means a false return indicates the alert was not active.
func (s *AlertStore) Acknowledge(ctx context.Context, id, actor string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET status = ?, acknowledged_by = ?, acknowledged_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusAcknowledged, actor, now, now, id, StatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	return n > 0, nil
}

// Resolve moves an open alert to resolved, recording the reason.
func (s *AlertStore) Resolve(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET status = ?, resolved_at = ?, resolution_reason = ?, updated_at = ?
		WHERE id = ? AND status != ?`,
		StatusResolved, now, reason, now, id, StatusResolved,
	)
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	return n > 0, nil
}
