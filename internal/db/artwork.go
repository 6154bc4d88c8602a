package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed-width so resolved_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Artwork is one successful image resolution.
type Artwork struct {
	ID         int64
	ROMPath    string
	Console    string
	Strategy   string
	URL        string
	LocalPath  string
	ResolvedAt time.Time
}

const artworkColumns = `id, rom_path, COALESCE(console, ''), strategy, url, local_path, resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtwork(row rowScanner) (Artwork, error) {
	var a Artwork
	var resolved string
	if err := row.Scan(&a.ID, &a.ROMPath, &a.Console, &a.Strategy, &a.URL, &a.LocalPath, &resolved); err != nil {
		return Artwork{}, err
	}
	t, err := time.Parse(timeLayout, resolved)
	if err != nil {
		return Artwork{}, fmt.Errorf("bad resolved_at %q: %w", resolved, err)
	}
	a.ResolvedAt = t
	return a, nil
}

// RecordArtwork appends a resolution to the history. A zero ResolvedAt is
// stamped with the current time.
func (db *DB) RecordArtwork(ctx context.Context, a Artwork) (int64, error) {
	if a.ResolvedAt.IsZero() {
		a.ResolvedAt = time.Now()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO artwork (rom_path, console, strategy, url, local_path, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ROMPath, a.Console, a.Strategy, a.URL, a.LocalPath, a.ResolvedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to record artwork: %w", err)
	}
	return res.LastInsertId()
}

// ListArtwork returns the most recent resolutions first. limit <= 0 means
// no limit.
func (db *DB) ListArtwork(ctx context.Context, limit int) ([]Artwork, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+artworkColumns+" FROM artwork ORDER BY resolved_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list artwork: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestArtwork returns the newest resolution for romPath, or nil.
func (db *DB) LatestArtwork(ctx context.Context, romPath string) (*Artwork, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+artworkColumns+" FROM artwork WHERE rom_path = ? ORDER BY resolved_at DESC, id DESC LIMIT 1", romPath)
	a, err := scanArtwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artwork: %w", err)
	}
	return &a, nil
}
