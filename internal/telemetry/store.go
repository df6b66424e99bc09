package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Comparison operators for thresholds.
const (
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpEquals      = "equals"
)

// ValidOperator reports whether op is a known comparison operator.
func ValidOperator(op string) bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpEquals:
		return true
	}
	return false
}

// ErrNotFound is returned when a threshold does not exist.
var ErrNotFound = errors.New("threshold not found")

// ValidationError is returned when threshold or metric input fails
// domain validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Threshold is an evaluation rule for one metric type. A nil DeviceID
// makes the rule fleet-wide; device-specific rules shadow fleet-wide ones.
type Threshold struct {
	ID            string    `json:"id"`
	DeviceID      *string   `json:"device_id,omitempty"`
	MetricType    string    `json:"metric_type"`
	Operator      string    `json:"operator"`
	WarningValue  float64   `json:"warning_value"`
	CriticalValue float64   `json:"critical_value"`
	Enabled       bool      `json:"enabled"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Metric is a single telemetry sample. Rows are append-only.
type Metric struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	MetricType string    `json:"metric_type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ValidateOrdering checks that the warning and critical bounds make sense
// for the operator: the critical bound must be the more extreme one.
func (t *Threshold) ValidateOrdering() error {
	switch t.Operator {
	case OpGreaterThan:
		if t.CriticalValue <= t.WarningValue {
			return &ValidationError{Field: "critical_value", Reason: "must be greater than warning_value for greater_than"}
		}
	case OpLessThan:
		if t.CriticalValue >= t.WarningValue {
			return &ValidationError{Field: "critical_value", Reason: "must be less than warning_value for less_than"}
		}
	case OpEquals:
		if t.CriticalValue == t.WarningValue {
			return &ValidationError{Field: "critical_value", Reason: "must differ from warning_value for equals"}
		}
	default:
		return &ValidationError{Field: "operator", Reason: "unknown comparison operator"}
	}
	return nil
}

// TelemetryStore provides database access for the telemetry module.
type TelemetryStore struct {
	db *sql.DB
}

// NewTelemetryStore creates a TelemetryStore backed by the given database.
func NewTelemetryStore(db *sql.DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

// InsertMetric appends a metric sample.
func (s *TelemetryStore) InsertMetric(ctx context.Context, m *Metric) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry_metrics (id, device_id, metric_type, value, unit, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.DeviceID, m.MetricType, m.Value, m.Unit, m.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// ListMetrics returns the most recent samples for a device, newest first.
// metricType narrows the result when non-empty.
func (s *TelemetryStore) ListMetrics(ctx context.Context, deviceID, metricType string, limit int) ([]Metric, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, device_id, metric_type, value, unit, recorded_at
		FROM telemetry_metrics WHERE device_id = ?`
	args := []any{deviceID}
	if metricType != "" {
		query += " AND metric_type = ?"
		args = append(args, metricType)
	}
	query += " ORDER BY recorded_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.MetricType, &m.Value, &m.Unit, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

const thresholdColumns = `id, device_id, metric_type, operator, warning_value,
	critical_value, enabled, created_by, created_at, updated_at`

// InsertThreshold stores a new threshold rule.
func (s *TelemetryStore) InsertThreshold(ctx context.Context, t *Threshold) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry_thresholds (`+thresholdColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.DeviceID, t.MetricType, t.Operator, t.WarningValue,
		t.CriticalValue, t.Enabled, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert threshold: %w", err)
	}
	return nil
}

// GetThreshold returns a threshold by ID, or ErrNotFound.
func (s *TelemetryStore) GetThreshold(ctx context.Context, id string) (*Threshold, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+thresholdColumns+` FROM telemetry_thresholds WHERE id = ?`, id)

	var t Threshold
	err := row.Scan(
		&t.ID, &t.DeviceID, &t.MetricType, &t.Operator, &t.WarningValue,
		&t.CriticalValue, &t.Enabled, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get threshold: %w", err)
	}
	return &t, nil
}

// UpdateThreshold replaces the mutable fields of a threshold.
func (s *TelemetryStore) UpdateThreshold(ctx context.Context, t *Threshold) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE telemetry_thresholds
		SET operator = ?, warning_value = ?, critical_value = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		t.Operator, t.WarningValue, t.CriticalValue, t.Enabled, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update threshold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update threshold: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetThresholdEnabled flips a threshold's enabled flag.
func (s *TelemetryStore) SetThresholdEnabled(ctx context.Context, id string, enabled bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE telemetry_thresholds SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, now, id,
	)
	if err != nil {
		return fmt.Errorf("set threshold enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set threshold enabled: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListThresholds returns thresholds, optionally narrowed by device or
// metric type. A deviceID filter also returns fleet-wide rows.
func (s *TelemetryStore) ListThresholds(ctx context.Context, deviceID, metricType string) ([]Threshold, error) {
	var conds []string
	var args []any
	if deviceID != "" {
		conds = append(conds, "(device_id = ? OR device_id IS NULL)")
		args = append(args, deviceID)
	}
	if metricType != "" {
		conds = append(conds, "metric_type = ?")
		args = append(args, metricType)
	}

	query := `SELECT ` + thresholdColumns + ` FROM telemetry_thresholds`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY metric_type, device_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()

	return scanThresholds(rows)
}

// MatchingThresholds returns the enabled rules that apply to one sample.
// Device-specific rules shadow fleet-wide rules: when any enabled rule
// exists for the exact device, fleet-wide rules are not consulted.
func (s *TelemetryStore) MatchingThresholds(ctx context.Context, deviceID, metricType string) ([]Threshold, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+thresholdColumns+` FROM telemetry_thresholds
		WHERE enabled = 1 AND metric_type = ? AND device_id = ?`,
		metricType, deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("matching thresholds: %w", err)
	}
	specific, err := scanThresholds(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(specific) > 0 {
		return specific, nil
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT `+thresholdColumns+` FROM telemetry_thresholds
		WHERE enabled = 1 AND metric_type = ? AND device_id IS NULL`,
		metricType,
	)
	if err != nil {
		return nil, fmt.Errorf("matching thresholds: %w", err)
	}
	defer rows.Close()
	return scanThresholds(rows)
}

func scanThresholds(rows *sql.Rows) ([]Threshold, error) {
	var thresholds []Threshold
	for rows.Next() {
		var t Threshold
		if err := rows.Scan(
			&t.ID, &t.DeviceID, &t.MetricType, &t.Operator, &t.WarningValue,
			&t.CriticalValue, &t.Enabled, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan threshold row: %w", err)
		}
		thresholds = append(thresholds, t)
	}
	return thresholds, rows.Err()
}
