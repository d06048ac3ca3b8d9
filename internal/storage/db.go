// Package storage keeps imported dataset texts in SQLite, keyed by snapshot
// identifier and dataset kind.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/garyellow/regionstat/internal/config"
)

const memoryPath = ":memory:"

// DB holds a single-connection writer and a reader pool over one SQLite file.
// An in-memory database shares one connection between both, since every
// connection to ":memory:" would otherwise see its own empty database.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// New opens (creating if needed) the database at dbPath and applies the schema.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != memoryPath {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	writer, err := open(ctx, dbPath, 1)
	if err != nil {
		return nil, err
	}

	reader := writer
	if dbPath != memoryPath {
		reader, err = open(ctx, dbPath, 8)
		if err != nil {
			_ = writer.Close()
			return nil, err
		}
	}

	db := &DB{writer: writer, reader: reader, path: dbPath}
	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

func open(ctx context.Context, dbPath string, maxConns int) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", config.DatabaseBusyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

// Ping checks the reader pool.
func (db *DB) Ping(ctx context.Context) error {
	return db.reader.PingContext(ctx)
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Reader returns the pool for queries.
func (db *DB) Reader() *sql.DB {
	return db.reader
}

// Writer returns the single writer connection.
func (db *DB) Writer() *sql.DB {
	return db.writer
}

// SwapConnections moves next's connections into db and returns the old ones.
// next must not be used afterwards.
func (db *DB) SwapConnections(next *DB) (oldWriter, oldReader *sql.DB, oldPath string) {
	oldWriter, oldReader, oldPath = db.writer, db.reader, db.path
	db.writer, db.reader, db.path = next.writer, next.reader, next.path
	next.writer, next.reader = nil, nil
	return oldWriter, oldReader, oldPath
}

// CreateSnapshot writes a consistent copy of the database to destPath.
func (db *DB) CreateSnapshot(ctx context.Context, destPath string) error {
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("create snapshot: remove stale file: %w", err)
	}
	if _, err := db.writer.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// Vacuum compacts the database file.
func (db *DB) Vacuum(ctx context.Context) error {
	if _, err := db.writer.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// NewTestDB creates an in-memory database for tests.
func NewTestDB() (*DB, error) {
	return New(context.Background(), memoryPath)
}
