package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ryanm101/romart/internal/hashindex"
)

// HashStore keeps the hash index in the hash_index table. Hashes are
// stored lowercase so lookups hit the primary key.
type HashStore struct {
	db *DB
}

// NewHashStore returns a hashindex.Store backed by db.
func NewHashStore(db *DB) *HashStore {
	return &HashStore{db: db}
}

var (
	_ hashindex.Store  = (*HashStore)(nil)
	_ hashindex.Finder = (*HashStore)(nil)
)

const hashIndexStore = "hash_index"

// Exists reports whether Populate has completed at least once, even if the
// import produced no rows.
func (s *HashStore) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.conn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM store_meta WHERE name = ?)", hashIndexStore,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check hash index: %w", err)
	}
	return exists, nil
}

// Populate replaces the table contents with the CSV rows from src in one
// transaction. When a hash repeats, the first row is kept.
func (s *HashStore) Populate(ctx context.Context, src io.Reader) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM hash_index"); err != nil {
		return fmt.Errorf("failed to clear hash index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO hash_index (hash, game_id, title) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	var imported int64
	err = hashindex.Each(src, func(hash string, ref hashindex.GameRef) error {
		res, err := stmt.ExecContext(ctx, strings.ToLower(hash), ref.GameID, ref.Title)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		imported += n
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import hash index: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO store_meta (name, populated_at, row_count) VALUES (?, ?, ?)",
		hashIndexStore, time.Now().UTC().Format(timeLayout), imported,
	); err != nil {
		return fmt.Errorf("failed to mark hash index populated: %w", err)
	}

	return tx.Commit()
}

// Load renders the table back into the CSV layout the index reads.
func (s *HashStore) Load(ctx context.Context) (io.ReadCloser, error) {
	rows, err := s.db.conn.QueryContext(ctx, "SELECT hash, game_id, title FROM hash_index ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for rows.Next() {
		var hash, gameID, title string
		if err := rows.Scan(&hash, &gameID, &title); err != nil {
			return nil, err
		}
		if err := w.Write([]string{hash, gameID, "", title}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// Find looks a hash up by primary key, ignoring case.
func (s *HashStore) Find(ctx context.Context, hash string) (hashindex.GameRef, bool, error) {
	var ref hashindex.GameRef
	err := s.db.conn.QueryRowContext(ctx,
		"SELECT game_id, title FROM hash_index WHERE hash = ?", strings.ToLower(hash),
	).Scan(&ref.GameID, &ref.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return hashindex.GameRef{}, false, nil
	}
	if err != nil {
		return hashindex.GameRef{}, false, fmt.Errorf("failed to look up hash: %w", err)
	}
	return ref, true, nil
}

// Count returns the number of indexed hashes.
func (s *HashStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM hash_index").Scan(&n)
	return n, err
}

// PopulatedAt returns when the index was last imported and how many rows
// it kept. ok is false if it never was.
func (s *HashStore) PopulatedAt(ctx context.Context) (at time.Time, rows int64, ok bool, err error) {
	var stamp string
	err = s.db.conn.QueryRowContext(ctx,
		"SELECT populated_at, row_count FROM store_meta WHERE name = ?", hashIndexStore,
	).Scan(&stamp, &rows)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, err
	}
	at, err = time.Parse(timeLayout, stamp)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("failed to parse populated_at %q: %w", stamp, err)
	}
	return at, rows, true, nil
}
