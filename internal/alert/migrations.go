package alert

import (
	"database/sql"

	"github.com/HerbHall/netweave/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create alerts table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS alerts (
						id TEXT PRIMARY KEY,
						device_id TEXT NOT NULL,
						alert_type TEXT NOT NULL,
						metric_type TEXT NOT NULL DEFAULT '',
						severity TEXT NOT NULL,
						status TEXT NOT NULL DEFAULT 'active',
						title TEXT NOT NULL,
						message TEXT NOT NULL DEFAULT '',
						observed_value REAL,
						threshold_value REAL,
						intent_id TEXT,
						acknowledged_by TEXT,
						acknowledged_at DATETIME,
						resolved_at DATETIME,
						resolution_reason TEXT,
						created_at DATETIME NOT NULL,
						updated_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_key ON alerts(device_id, alert_type, metric_type, status)`,
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
