package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the key-value table. Values are JSON documents; one
// row per top-level key, so writing one key never disturbs another.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}
