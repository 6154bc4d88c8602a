package archive

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/nwaples/rardecode/v2"
	"github.com/ulikunitz/xz"
)

func openZIP(path string) (io.ReadCloser, Entry, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("open ZIP archive: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			_ = reader.Close()
			return nil, Entry{}, fmt.Errorf("open file in ZIP: %w", err)
		}
		entry := Entry{
			Name: file.Name,
			Size: int64(file.UncompressedSize64), //nolint:gosec // ROM sizes fit in int64
		}
		return newEntryReader(rc, rc, reader), entry, nil
	}

	_ = reader.Close()
	return nil, Entry{}, EmptyError{Archive: path}
}

func openSevenZip(path string) (io.ReadCloser, Entry, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("open 7z archive: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			_ = reader.Close()
			return nil, Entry{}, fmt.Errorf("open file in 7z: %w", err)
		}
		entry := Entry{
			Name: file.Name,
			Size: int64(file.UncompressedSize), //nolint:gosec // ROM sizes fit in int64
		}
		return newEntryReader(rc, rc, reader), entry, nil
	}

	_ = reader.Close()
	return nil, Entry{}, EmptyError{Archive: path}
}

// openRAR walks headers sequentially; rardecode readers have no Close, so
// only the underlying file needs releasing.
func openRAR(path string) (io.ReadCloser, Entry, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided ROM path
	if err != nil {
		return nil, Entry{}, fmt.Errorf("open RAR archive: %w", err)
	}

	reader, err := rardecode.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, Entry{}, fmt.Errorf("create RAR reader: %w", err)
	}

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = file.Close()
			return nil, Entry{}, fmt.Errorf("read RAR header: %w", err)
		}
		if header.IsDir {
			continue
		}
		return newEntryReader(reader, file), Entry{Name: header.Name, Size: header.UnPackedSize}, nil
	}

	_ = file.Close()
	return nil, Entry{}, EmptyError{Archive: path}
}

func openGzip(path string) (io.ReadCloser, Entry, error) {
	return openStream(path, func(p string) (io.Reader, []io.Closer, error) {
		file, err := os.Open(p) //nolint:gosec // User-provided ROM path
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, nil, fmt.Errorf("read gzip header: %w", err)
		}
		return gz, []io.Closer{gz, file}, nil
	})
}

func openXZ(path string) (io.ReadCloser, Entry, error) {
	return openStream(path, func(p string) (io.Reader, []io.Closer, error) {
		file, err := os.Open(p) //nolint:gosec // User-provided ROM path
		if err != nil {
			return nil, nil, fmt.Errorf("open xz stream: %w", err)
		}
		xr, err := xz.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, nil, fmt.Errorf("read xz header: %w", err)
		}
		return xr, []io.Closer{file}, nil
	})
}
