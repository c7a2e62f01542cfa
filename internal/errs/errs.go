// Package errs defines the error taxonomy shared by the container round trip
// and the record transform engine.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Every sentinel below wraps exactly one of these so callers can
// branch on the broad category with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrFormat   = errors.New("format error")
	ErrState    = errors.New("state error")
	ErrIO       = errors.New("io failure")
)

var (
	ErrContainerNotFound    = fmt.Errorf("%w: container not found", ErrNotFound)
	ErrExtractedFileMissing = fmt.Errorf("%w: extracted file missing", ErrNotFound)

	ErrContainerUnreadable = fmt.Errorf("%w: container unreadable", ErrFormat)
	ErrParse               = fmt.Errorf("%w: structured text parse failed", ErrFormat)
	ErrEmptyInput          = fmt.Errorf("%w: empty input", ErrFormat)
	ErrInvalidFormat       = fmt.Errorf("%w: invalid input format", ErrFormat)
	ErrInvalidBounds       = fmt.Errorf("%w: invalid bounds", ErrFormat)

	ErrNoContainerLoaded = fmt.Errorf("%w: no container loaded", ErrState)
	ErrSidecarInvalid    = fmt.Errorf("%w: identifier map sidecar missing or corrupt", ErrState)
	ErrDuplicatePathID   = fmt.Errorf("%w: path id already recorded", ErrState)
	ErrDuplicateName     = fmt.Errorf("%w: name already assigned", ErrState)
	ErrNoRecords         = fmt.Errorf("%w: record collection not found", ErrState)

	ErrExtractionFailed = fmt.Errorf("%w: extraction failed", ErrIO)
	ErrRepackFailed     = fmt.Errorf("%w: repack failed", ErrIO)
)

// OpError records the operation and file that failed along with the cause.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Wrap builds an OpError. A nil err yields nil.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: err}
}

// Phase wraps cause under a phase sentinel so that both the phase
// (e.g. ErrRepackFailed) and the underlying cause stay matchable.
func Phase(op, path string, phase, cause error) error {
	if cause == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", phase, cause)}
}
