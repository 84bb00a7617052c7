package storage

import (
	"context"
	"database/sql"
)

// migrateV002 indexes rows by modification time for status reporting.
func migrateV002(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_kv_updated_at ON kv(updated_at)`)
	return err
}
