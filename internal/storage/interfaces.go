package storage

import "context"

// DatasetRepository is the dataset store used by the catalog and the admin API.
// Both DB and HotSwapDB implement it.
type DatasetRepository interface {
	SaveDataset(ctx context.Context, snapshotID, kind, content string) (*Dataset, error)
	GetDataset(ctx context.Context, snapshotID, kind string) (*Dataset, error)
	GetSnapshotTexts(ctx context.Context, snapshotID string) (map[string]string, error)
	ListSnapshots(ctx context.Context, prefix string) ([]SnapshotInfo, error)
	DeleteDataset(ctx context.Context, snapshotID, kind string) error
	CountDatasets(ctx context.Context) (int, error)
}

var (
	_ DatasetRepository = (*DB)(nil)
	_ DatasetRepository = (*HotSwapDB)(nil)
)
