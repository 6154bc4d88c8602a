package hashindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store caches the raw hash index CSV. The index never refreshes itself;
// once a Store reports Exists it is trusted until Populate runs again.
type Store interface {
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) (io.ReadCloser, error)
	Populate(ctx context.Context, src io.Reader) error
}

// FileStore keeps the CSV verbatim on disk.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.Path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileStore) Load(_ context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// Populate writes src to a sibling temp file and renames it into place, so
// an interrupted download never leaves a truncated index behind.
func (s *FileStore) Populate(_ context.Context, src io.Reader) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // Standard dir permissions
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hashindex-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write hash index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// MemoryStore holds the CSV in memory.
type MemoryStore struct {
	data    []byte
	present bool
}

// NewMemoryStore returns a store preloaded with csv, or an empty one when
// csv is nil.
func NewMemoryStore(csv []byte) *MemoryStore {
	return &MemoryStore{data: csv, present: csv != nil}
}

func (s *MemoryStore) Exists(_ context.Context) (bool, error) {
	return s.present, nil
}

func (s *MemoryStore) Load(_ context.Context) (io.ReadCloser, error) {
	if !s.present {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *MemoryStore) Populate(_ context.Context, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	s.data = data
	s.present = true
	return nil
}
