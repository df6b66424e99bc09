package telemetry

import (
	"database/sql"

	"github.com/HerbHall/netweave/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create telemetry metrics and thresholds tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS telemetry_metrics (
						id TEXT PRIMARY KEY,
						device_id TEXT NOT NULL,
						metric_type TEXT NOT NULL,
						value REAL NOT NULL,
						unit TEXT NOT NULL DEFAULT '',
						recorded_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_telemetry_metrics_device ON telemetry_metrics(device_id, metric_type, recorded_at)`,
					`CREATE TABLE IF NOT EXISTS telemetry_thresholds (
						id TEXT PRIMARY KEY,
						device_id TEXT,
						metric_type TEXT NOT NULL,
						operator TEXT NOT NULL,
						warning_value REAL NOT NULL,
						critical_value REAL NOT NULL,
						enabled INTEGER NOT NULL DEFAULT 1,
						created_by TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL,
						updated_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_telemetry_thresholds_metric ON telemetry_thresholds(metric_type, enabled)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
