package inventory

import (
	"database/sql"

	"github.com/HerbHall/netweave/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create inventory devices table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS inventory_devices (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						type TEXT NOT NULL,
						status TEXT NOT NULL DEFAULT 'unknown',
						ip_address TEXT NOT NULL DEFAULT '',
						location TEXT NOT NULL DEFAULT '',
						model TEXT NOT NULL DEFAULT '',
						vendor TEXT NOT NULL DEFAULT '',
						external_id TEXT UNIQUE,
						created_at DATETIME NOT NULL,
						updated_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_inventory_devices_status ON inventory_devices(status)`,
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
