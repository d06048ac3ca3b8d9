// Package main provides the snapshot tool: it imports dataset texts into the
// local SQLite store and moves that store to and from R2.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/garyellow/regionstat/internal/config"
	"github.com/garyellow/regionstat/internal/dataset"
	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/r2client"
	"github.com/garyellow/regionstat/internal/snapshot"
	"github.com/garyellow/regionstat/internal/storage"
)

// CLI flags
var (
	timeoutFlag = flag.Duration("timeout", 5*time.Minute, "Overall deadline for the command")
	dbFlag      = flag.String("db", "", "SQLite path (default: $REGIONSTAT_DATA_DIR/datasets.db)")
)

const usage = `Usage: snapshot [flags] <command> [args]

Commands:
  import <snapshot-id> <kind> <file>   Import one dataset text
  import-dir <snapshot-id> <dir>       Import every <kind>.csv found in dir
  list [prefix]                        List stored snapshots, e.g. "list 2025"
  pack <out.db.zst>                    Write the zstd-packed store to a local file
  push                                 Publish the local store to R2
  pull                                 Replace the local store with the R2 snapshot

Kinds: age, household, supply, population, yearly
`

func main() {
	flag.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadForMode(config.ToolMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).WithModule("snapshot-cli")

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = cfg.SQLitePath()
	}

	start := time.Now()
	if err := run(ctx, cfg, log, dbPath, flag.Args()); err != nil {
		log.WithError(err).Error("Command failed")
		_, _ = fmt.Fprintf(os.Stderr, "\n❌ %s failed: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	fmt.Printf("Total time: %v\n", time.Since(start).Round(time.Millisecond))
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, dbPath string, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "import":
		id, kind, path, err := parseImportArgs(rest)
		if err != nil {
			return err
		}
		return withStore(ctx, dbPath, func(db *storage.DB) error {
			rows, err := importFile(ctx, db, id, kind, path)
			if err != nil {
				return err
			}
			log.WithSnapshot(id).WithField("kind", kind).WithField("rows", rows).Info("Dataset imported")
			fmt.Printf("✅ Imported %s/%s: %d rows\n", id, kind, rows)
			return nil
		})

	case "import-dir":
		if len(rest) != 2 {
			return errors.New("import-dir needs <snapshot-id> <dir>")
		}
		id, dir := rest[0], rest[1]
		if err := dataset.ValidateSnapshotID(id); err != nil {
			return err
		}
		return withStore(ctx, dbPath, func(db *storage.DB) error {
			imported, err := importDir(ctx, db, id, dir)
			if err != nil {
				return err
			}
			if len(imported) == 0 {
				fmt.Printf("⏭️  No dataset files in %s\n", dir)
				return nil
			}
			log.WithSnapshot(id).WithField("kinds", imported).Info("Datasets imported")
			fmt.Printf("✅ Imported %s: %s\n", id, strings.Join(imported, ", "))
			return nil
		})

	case "list":
		if len(rest) > 1 {
			return errors.New("list takes at most one <prefix>")
		}
		prefix := ""
		if len(rest) == 1 {
			prefix = rest[0]
		}
		return withStore(ctx, dbPath, func(db *storage.DB) error {
			_, err := listSnapshots(ctx, db, prefix, os.Stdout)
			return err
		})

	case "pack":
		if len(rest) != 1 {
			return errors.New("pack needs <out.db.zst>")
		}
		out := rest[0]
		return withStore(ctx, dbPath, func(db *storage.DB) error {
			size, err := pack(ctx, db, out)
			if err != nil {
				return err
			}
			log.WithField("path", out).WithField("bytes", size).Info("Store packed")
			fmt.Printf("✅ Packed %s (%d bytes)\n", out, size)
			return nil
		})

	case "push":
		mgr, err := newManager(ctx, cfg, log)
		if err != nil {
			return err
		}
		return withStore(ctx, dbPath, func(db *storage.DB) error {
			etag, err := mgr.Publish(ctx, db)
			if errors.Is(err, snapshot.ErrLocked) {
				return fmt.Errorf("another publisher is running: %w", err)
			}
			if err != nil {
				return err
			}
			log.WithField("etag", etag).Info("Snapshot published")
			fmt.Printf("✅ Published %s (etag %s)\n", cfg.R2.SnapshotKey, etag)
			return nil
		})

	case "pull":
		mgr, err := newManager(ctx, cfg, log)
		if err != nil {
			return err
		}
		// stale WAL files would be replayed over the downloaded store
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", dbPath+suffix, err)
			}
		}
		etag, err := mgr.Download(ctx, dbPath)
		if err != nil {
			return err
		}
		log.WithField("etag", etag).WithField("path", dbPath).Info("Snapshot downloaded")
		fmt.Printf("✅ Pulled %s into %s\n", cfg.R2.SnapshotKey, dbPath)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// parseImportArgs checks the <snapshot-id> <kind> <file> triple.
func parseImportArgs(args []string) (string, dataset.Kind, string, error) {
	if len(args) != 3 {
		return "", "", "", errors.New("import needs <snapshot-id> <kind> <file>")
	}
	id := args[0]
	if err := dataset.ValidateSnapshotID(id); err != nil {
		return "", "", "", err
	}
	kind, err := dataset.ParseKind(strings.ToLower(strings.TrimSpace(args[1])))
	if err != nil {
		return "", "", "", err
	}
	return id, kind, args[2], nil
}

// importFile validates the file against kind before storing it and
// returns the number of data rows.
func importFile(ctx context.Context, repo storage.DatasetRepository, id string, kind dataset.Kind, path string) (int, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	table, err := dataset.Parse(kind, string(raw))
	if err != nil {
		return 0, err
	}
	if table == nil {
		return 0, fmt.Errorf("%s is empty", path)
	}
	if _, err := repo.SaveDataset(ctx, id, string(kind), string(raw)); err != nil {
		return 0, fmt.Errorf("save %s: %w", kind, err)
	}
	return len(table.Rows), nil
}

// importDir imports <kind>.csv for every kind present in dir.
// Nothing is stored unless every present file parses.
func importDir(ctx context.Context, repo storage.DatasetRepository, id, dir string) ([]string, error) {
	type pending struct {
		kind dataset.Kind
		text string
	}
	var files []pending
	for _, kind := range dataset.Kinds() {
		path := filepath.Join(dir, kindFileName(kind))
		raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		table, err := dataset.Parse(kind, string(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if table == nil {
			continue
		}
		files = append(files, pending{kind: kind, text: string(raw)})
	}

	imported := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := repo.SaveDataset(ctx, id, string(f.kind), f.text); err != nil {
			return imported, fmt.Errorf("save %s: %w", f.kind, err)
		}
		imported = append(imported, string(f.kind))
	}
	return imported, nil
}

// pack writes a consistent zstd-compressed copy of src to out, the same
// format push uploads, and returns its size.
func pack(ctx context.Context, src snapshot.Source, out string) (int64, error) {
	raw := out + ".tmp"
	if err := src.CreateSnapshot(ctx, raw); err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(raw) }()

	if err := r2client.CompressFile(raw, out); err != nil {
		return 0, fmt.Errorf("compress: %w", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// listSnapshots prints one line per stored snapshot whose identifier starts
// with prefix and returns how many it printed.
func listSnapshots(ctx context.Context, repo storage.DatasetRepository, prefix string, w io.Writer) (int, error) {
	infos, err := repo.ListSnapshots(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s  %s  (%s)\n", info.ID,
			strings.Join(info.Kinds, ","),
			time.Unix(info.ImportedAt, 0).Format(time.DateTime))
	}
	_, _ = fmt.Fprintf(w, "%d snapshots\n", len(infos))
	return len(infos), nil
}

func kindFileName(kind dataset.Kind) string {
	return string(kind) + ".csv"
}

func withStore(ctx context.Context, path string, fn func(db *storage.DB) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.New(ctx, path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func newManager(ctx context.Context, cfg *config.Config, log *logger.Logger) (*snapshot.Manager, error) {
	if !cfg.R2.Enabled {
		return nil, errors.New("R2 is not enabled (set REGIONSTAT_R2_ENABLED=true)")
	}
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2.Endpoint(),
		AccessKeyID: cfg.R2.AccessKeyID,
		SecretKey:   cfg.R2.SecretAccessKey,
		BucketName:  cfg.R2.BucketName,
	})
	if err != nil {
		return nil, fmt.Errorf("r2: %w", err)
	}
	return snapshot.New(client, snapshot.Config{
		SnapshotKey: cfg.R2.SnapshotKey,
		LockKey:     cfg.R2.LockKey,
		LockTTL:     cfg.R2.LockTTL,
		TempDir:     os.TempDir(),
	}, log, nil), nil
}
