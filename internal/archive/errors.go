package archive

import "fmt"

// FormatError indicates an unsupported archive extension.
type FormatError struct {
	Format string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("unsupported archive format: %q", e.Format)
}

// EmptyError indicates an archive with no file entries.
type EmptyError struct {
	Archive string
}

func (e EmptyError) Error() string {
	return fmt.Sprintf("no files in archive %q", e.Archive)
}
