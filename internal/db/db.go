// Package db persists the hash index and artwork history in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the latest migration applied by Open.
const SchemaVersion = 3

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates a SQLite database at the given path, creating its
// directory if needed. Queries are traced through otelsql.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // Standard dir permissions
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := otelsql.Open("sqlite", path,
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// migrate runs database migrations up to SchemaVersion.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	migrations := []func(context.Context) error{db.migrateV1, db.migrateV2, db.migrateV3}
	for i, m := range migrations {
		if version < i+1 {
			if err := m(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// migrateV1 creates the hash index table.
func (db *DB) migrateV1(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS hash_index (
			hash TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			title TEXT NOT NULL
		);

		INSERT INTO schema_version (version) VALUES (1);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v1 migration: %w", err)
	}
	return nil
}

// migrateV2 adds artwork resolution history.
func (db *DB) migrateV2(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS artwork (
			id INTEGER PRIMARY KEY,
			rom_path TEXT NOT NULL,
			console TEXT,
			strategy TEXT NOT NULL,
			url TEXT NOT NULL,
			local_path TEXT NOT NULL,
			resolved_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_artwork_rom_path ON artwork(rom_path);

		INSERT INTO schema_version (version) VALUES (2);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v2 migration: %w", err)
	}
	return nil
}

// migrateV3 records when each store was last populated, so an index that
// imported zero rows still counts as present. Existing non-empty hash
// tables are marked populated.
func (db *DB) migrateV3(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS store_meta (
			name TEXT PRIMARY KEY,
			populated_at TEXT NOT NULL,
			row_count INTEGER NOT NULL
		);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v3 migration: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO store_meta (name, populated_at, row_count)
		SELECT 'hash_index', ?, (SELECT COUNT(*) FROM hash_index)
		WHERE EXISTS (SELECT 1 FROM hash_index)
	`, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to backfill store_meta: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (3)"); err != nil {
		return fmt.Errorf("failed to record v3 migration: %w", err)
	}
	return nil
}
