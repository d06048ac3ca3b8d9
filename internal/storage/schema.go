package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates the datasets table and its indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS datasets (
		snapshot_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		imported_at INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, kind)
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_imported_at ON datasets(imported_at);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create datasets table: %w", err)
	}
	return nil
}
