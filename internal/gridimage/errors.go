package gridimage

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution failures.
var (
	ErrNotFound         = errors.New("no image found")
	ErrIndexUnavailable = errors.New("hash index unavailable")
	ErrDownload         = errors.New("image download failed")
	ErrUnknownStrategy  = errors.New("unknown strategy")
)

// ResolveError provides context for a failed resolution step.
type ResolveError struct {
	Op  string // Step that failed (e.g., "hash rom")
	ROM string // ROM path if applicable
	Err error  // Underlying error
}

func (e *ResolveError) Error() string {
	if e.ROM != "" {
		return fmt.Sprintf("%s '%s': %v", e.Op, e.ROM, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that no strategy produced an image for romPath.
func NotFoundError(romPath string) error {
	return &ResolveError{Op: "resolve image", ROM: romPath, Err: ErrNotFound}
}

// wrap attaches op context to err, joining it with a sentinel when given.
func wrap(op, romPath string, sentinel, err error) error {
	if err == nil {
		return nil
	}
	if sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &ResolveError{Op: op, ROM: romPath, Err: err}
}
