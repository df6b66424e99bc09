package snapshot

import (
	"database/sql"

	"github.com/HerbHall/netweave/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create config snapshots table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS config_snapshots (
						id TEXT PRIMARY KEY,
						device_id TEXT NOT NULL,
						intent_id TEXT,
						configuration_hash TEXT NOT NULL,
						configuration_data TEXT NOT NULL,
						cause TEXT NOT NULL,
						created_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_config_snapshots_device ON config_snapshots(device_id, created_at)`,
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
