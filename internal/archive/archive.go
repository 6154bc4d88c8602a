// Package archive opens the first ROM stored in a compressed container.
//
// Multi-file containers (.zip, .7z, .rar) yield their first non-directory
// entry in archive order. Single-stream formats (.gz, .xz) yield the
// decompressed stream; since they record no reliable uncompressed size, it
// is measured with a counting pass before the stream is reopened.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Entry describes the file being read out of an archive.
type Entry struct {
	Name string // path inside the archive, or the stream name without suffix
	Size int64  // uncompressed size
}

// opener opens the first entry of one archive format.
type opener func(path string) (io.ReadCloser, Entry, error)

var openers = map[string]opener{
	".zip": openZIP,
	".7z":  openSevenZip,
	".rar": openRAR,
	".gz":  openGzip,
	".xz":  openXZ,
}

// IsArchive reports whether path has a supported container extension.
func IsArchive(path string) bool {
	_, ok := openers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// OpenFirst opens the first file stored in the archive at path. Closing the
// returned reader releases both the entry stream and the archive handle.
func OpenFirst(path string) (io.ReadCloser, Entry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := openers[ext]
	if !ok {
		return nil, Entry{}, FormatError{Format: ext}
	}
	return open(path)
}

// entryReader reads an entry and closes every handle behind it, innermost first.
type entryReader struct {
	io.Reader
	closers []io.Closer
}

func newEntryReader(r io.Reader, closers ...io.Closer) *entryReader {
	return &entryReader{Reader: r, closers: closers}
}

func (er *entryReader) Close() error {
	var errs []error
	for _, c := range er.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// countStream measures the decompressed length of a stream format.
func countStream(path string, open func(path string) (io.Reader, []io.Closer, error)) (int64, error) {
	r, closers, err := open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = newEntryReader(nil, closers...).Close() }()

	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// openStream opens a single-stream compressed file as an Entry.
func openStream(path string, open func(path string) (io.Reader, []io.Closer, error)) (io.ReadCloser, Entry, error) {
	size, err := countStream(path, open)
	if err != nil {
		return nil, Entry{}, err
	}

	r, closers, err := open(path)
	if err != nil {
		return nil, Entry{}, err
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return newEntryReader(r, closers...), Entry{Name: name, Size: size}, nil
}
