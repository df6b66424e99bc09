package intent

import (
	"database/sql"

	"github.com/HerbHall/netweave/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create intents and deployment tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS intents (
						id TEXT PRIMARY KEY,
						title TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						intent_type TEXT NOT NULL,
						status TEXT NOT NULL DEFAULT 'draft',
						device_id TEXT NOT NULL,
						configuration TEXT NOT NULL DEFAULT '',
						configuration_hash TEXT NOT NULL DEFAULT '',
						created_by TEXT NOT NULL,
						approved_by TEXT,
						deployed_at DATETIME,
						created_at DATETIME NOT NULL,
						updated_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_intents_status ON intents(status)`,
					`CREATE INDEX IF NOT EXISTS idx_intents_device ON intents(device_id)`,
					`CREATE TABLE IF NOT EXISTS intent_deployments (
						device_id TEXT PRIMARY KEY,
						intent_id TEXT NOT NULL,
						configuration_hash TEXT NOT NULL,
						deployed_at DATETIME NOT NULL
					)`,
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
