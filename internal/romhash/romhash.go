// Package romhash computes content hashes of ROM files the way public hash
// indexes expect them: archives are read through to their first entry and
// SNES copier headers are dropped.
package romhash

import (
	"crypto/md5"  //nolint:gosec // Index keys are MD5, not a security boundary
	"crypto/sha1" //nolint:gosec // Same as above
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ryanm101/romart/internal/archive"
	"github.com/ryanm101/romart/internal/metrics"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5   Algorithm = "md5"
	SHA1  Algorithm = "sha1"
	CRC32 Algorithm = "crc32"
)

const (
	// ChunkSize is how much is read per digest update.
	ChunkSize = 4096

	// CopierHeaderSize is the length of the legacy SNES copier header.
	CopierHeaderSize = 512
)

// ErrUnknownAlgorithm is returned for digest names outside MD5, SHA1, CRC32.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithms lists the supported digests.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA1, CRC32}
}

// ParseAlgorithm maps a case-insensitive name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(name))
	if _, err := algo.newHash(); err != nil {
		return "", err
	}
	return algo, nil
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec // See import
	case SHA1:
		return sha1.New(), nil //nolint:gosec // See import
	case CRC32:
		return crc32.NewIEEE(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Compute returns the lowercase hex digest of the ROM at path. Archives
// are hashed through their first entry. For .smc files whose size modulo
// 1024 is 512, the leading copier header is skipped.
func Compute(path string, algo Algorithm) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	defer metrics.RecordHashDuration(string(algo), time.Now())

	r, name, size, err := open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	if HasCopierHeader(name, size) {
		if _, err := io.CopyN(io.Discard, r, CopierHeaderSize); err != nil {
			return "", fmt.Errorf("skip copier header of %s: %w", path, err)
		}
	}

	if err := Digest(h, r); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// open returns a reader over the ROM bytes along with the name and
// uncompressed size used for the copier-header rule.
func open(path string) (io.ReadCloser, string, int64, error) {
	if archive.IsArchive(path) {
		rc, entry, err := archive.OpenFirst(path)
		if err != nil {
			return nil, "", 0, err
		}
		return rc, entry.Name, entry.Size, nil
	}

	f, err := os.Open(path) //nolint:gosec // User-provided ROM path
	if err != nil {
		return nil, "", 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, "", 0, err
	}
	return f, path, info.Size(), nil
}

// HasCopierHeader reports whether a ROM named name of the given size
// carries a 512-byte SNES copier header.
func HasCopierHeader(name string, size int64) bool {
	return strings.HasSuffix(strings.ToLower(name), ".smc") && size%1024 == CopierHeaderSize
}

// Digest feeds r to h in ChunkSize reads until EOF.
func Digest(h hash.Hash, r io.Reader) error {
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
