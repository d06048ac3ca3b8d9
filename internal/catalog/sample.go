package catalog

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/garyellow/regionstat/internal/dataset"
)

//go:embed sample
var bundled embed.FS

// Sample is a read-only set of snapshots laid out as <id>/<kind>.csv.
type Sample struct {
	fsys fs.FS
}

// BundledSample returns the snapshot shipped inside the binary.
func BundledSample() *Sample {
	sub, err := fs.Sub(bundled, "sample")
	if err != nil {
		panic(err)
	}
	return &Sample{fsys: sub}
}

// NewSample reads snapshots from fsys, e.g. os.DirFS of an exported directory.
func NewSample(fsys fs.FS) *Sample {
	return &Sample{fsys: fsys}
}

// IDs lists the valid snapshot identifiers in the sample, oldest first.
func (s *Sample) IDs() []string {
	dirs, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil
	}
	var ids []string
	for _, d := range dirs {
		if d.IsDir() && dataset.ValidateSnapshotID(d.Name()) == nil {
			ids = append(ids, d.Name())
		}
	}
	slices.Sort(ids)
	return ids
}

// Texts returns the dataset texts of one snapshot. Files whose name is not a
// dataset kind are ignored.
func (s *Sample) Texts(id string) (map[dataset.Kind]string, bool) {
	if dataset.ValidateSnapshotID(id) != nil {
		return nil, false
	}
	files, err := fs.ReadDir(s.fsys, id)
	if err != nil {
		return nil, false
	}
	texts := make(map[dataset.Kind]string)
	for _, f := range files {
		name, ok := strings.CutSuffix(f.Name(), ".csv")
		if f.IsDir() || !ok {
			continue
		}
		kind, err := dataset.ParseKind(name)
		if err != nil {
			continue
		}
		data, err := fs.ReadFile(s.fsys, path.Join(id, f.Name()))
		if err != nil {
			continue
		}
		texts[kind] = string(data)
	}
	return texts, len(texts) > 0
}
