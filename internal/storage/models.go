package storage

import "errors"

// ErrNotFound is returned when a dataset is not in the store.
var ErrNotFound = errors.New("resource not found")

// Dataset is one imported dataset text.
type Dataset struct {
	SnapshotID string `json:"snapshot_id"`
	Kind       string `json:"kind"`
	Content    string `json:"-"`
	SHA256     string `json:"sha256"`
	ImportedAt int64  `json:"imported_at"`
}

// SnapshotInfo summarises the datasets stored for one snapshot.
type SnapshotInfo struct {
	ID         string   `json:"id"`
	Kinds      []string `json:"kinds"`
	ImportedAt int64    `json:"imported_at"`
}
