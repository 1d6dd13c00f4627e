package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrLockHeld  = errors.New("run already in progress")
	ErrBadCursor = errors.New("malformed page cursor")
)

// SourceError marks one storefront as unavailable for this run. Recoverable:
// the run proceeds with the sources that answered.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err) }
func (e *SourceError) Unwrap() error { return e.Err }

// InferenceError marks a failed or unusable model response. Recoverable: the
// extractor falls back to the frequency variant.
type InferenceError struct {
	Stage string // request|parse|validate
	Err   error
}

func (e *InferenceError) Error() string { return fmt.Sprintf("inference %s: %v", e.Stage, e.Err) }
func (e *InferenceError) Unwrap() error { return e.Err }

// PersistError aborts the run. Written counts rows stored before the failure
// so the result can report partial progress; the append is idempotent, so a
// retry is safe.
type PersistError struct {
	Written int
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist failed after %d rows: %v", e.Written, e.Err)
}
func (e *PersistError) Unwrap() error { return e.Err }
