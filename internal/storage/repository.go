package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SaveDataset inserts or replaces the dataset text of a snapshot.
// A leading byte order mark is dropped before hashing.
func (db *DB) SaveDataset(ctx context.Context, snapshotID, kind, content string) (*Dataset, error) {
	content = normalizeContent(content)
	sum := sha256.Sum256([]byte(content))
	d := &Dataset{
		SnapshotID: snapshotID,
		Kind:       kind,
		Content:    content,
		SHA256:     hex.EncodeToString(sum[:]),
		ImportedAt: time.Now().Unix(),
	}

	query := `
		INSERT INTO datasets (snapshot_id, kind, content, sha256, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id, kind) DO UPDATE SET
			content = excluded.content,
			sha256 = excluded.sha256,
			imported_at = excluded.imported_at
	`
	if _, err := db.writer.ExecContext(ctx, query, d.SnapshotID, d.Kind, d.Content, d.SHA256, d.ImportedAt); err != nil {
		return nil, fmt.Errorf("save dataset %s/%s: %w", snapshotID, kind, err)
	}
	return d, nil
}

// GetDataset returns one dataset, or ErrNotFound.
func (db *DB) GetDataset(ctx context.Context, snapshotID, kind string) (*Dataset, error) {
	query := `SELECT snapshot_id, kind, content, sha256, imported_at FROM datasets WHERE snapshot_id = ? AND kind = ?`

	var d Dataset
	err := db.reader.QueryRowContext(ctx, query, snapshotID, kind).
		Scan(&d.SnapshotID, &d.Kind, &d.Content, &d.SHA256, &d.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %s/%s: %w", snapshotID, kind, err)
	}
	return &d, nil
}

// GetSnapshotTexts returns every dataset text of a snapshot keyed by kind.
// An unknown snapshot yields ErrNotFound.
func (db *DB) GetSnapshotTexts(ctx context.Context, snapshotID string) (map[string]string, error) {
	rows, err := db.reader.QueryContext(ctx, `SELECT kind, content FROM datasets WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", snapshotID, err)
	}
	defer func() { _ = rows.Close() }()

	texts := make(map[string]string)
	for rows.Next() {
		var kind, content string
		if err := rows.Scan(&kind, &content); err != nil {
			return nil, fmt.Errorf("scan snapshot %s: %w", snapshotID, err)
		}
		texts[kind] = content
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot %s: %w", snapshotID, err)
	}
	if len(texts) == 0 {
		return nil, ErrNotFound
	}
	return texts, nil
}

// ListSnapshots lists stored snapshots whose identifier starts with prefix,
// newest identifier first. An empty prefix lists all of them.
func (db *DB) ListSnapshots(ctx context.Context, prefix string) ([]SnapshotInfo, error) {
	query := `
		SELECT snapshot_id, kind, imported_at FROM datasets
		WHERE snapshot_id LIKE ? ESCAPE '\'
		ORDER BY snapshot_id DESC, kind
	`
	rows, err := db.reader.QueryContext(ctx, query, sanitizeSearchTerm(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var id, kind string
		var importedAt int64
		if err := rows.Scan(&id, &kind, &importedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot list: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, SnapshotInfo{ID: id})
		}
		last := &out[len(out)-1]
		last.Kinds = append(last.Kinds, kind)
		last.ImportedAt = max(last.ImportedAt, importedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot list: %w", err)
	}
	return out, nil
}

// DeleteDataset removes one dataset; deleting a missing dataset is not an error.
func (db *DB) DeleteDataset(ctx context.Context, snapshotID, kind string) error {
	if _, err := db.writer.ExecContext(ctx, `DELETE FROM datasets WHERE snapshot_id = ? AND kind = ?`, snapshotID, kind); err != nil {
		return fmt.Errorf("delete dataset %s/%s: %w", snapshotID, kind, err)
	}
	return nil
}

// CountDatasets counts stored datasets across all snapshots.
func (db *DB) CountDatasets(ctx context.Context) (int, error) {
	var n int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count datasets: %w", err)
	}
	return n, nil
}

// normalizeContent strips a UTF-8 byte order mark that spreadsheet exports prepend.
func normalizeContent(content string) string {
	return strings.TrimPrefix(content, "\ufeff")
}
