package sortify

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache operations.
var (
	// ErrCacheCorrupt marks a persisted record that cannot be parsed.
	// Surfaced rather than treated as absent: a silent miss would trigger a
	// duplicate remote call and a blind overwrite of the other pass's field.
	ErrCacheCorrupt = errors.New("cache record corrupt")

	// ErrWriteConflict marks a read-modify-write that lost a race with an
	// external writer. The caller should retry the write.
	ErrWriteConflict = errors.New("cache write conflict")

	// ErrUnknownField marks a Field value outside scale_labels/material_labels.
	ErrUnknownField = errors.New("unknown record field")
)

// PreprocessError reports an unreadable or undecodable source image.
// Permanent: retrying cannot help, and no cache entry is written.
type PreprocessError struct {
	Ref string
	Err error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocess %s: %v", e.Ref, e.Err)
}

func (e *PreprocessError) Unwrap() error { return e.Err }

// RemoteError reports a failed remote classifier call. Transient failures
// (timeouts, throttling, service warming up) are eligible for bounded retry
// by the caller; permanent ones are not.
type RemoteError struct {
	Op        string
	Status    int // HTTP status, 0 for transport-level failures
	Transient bool
	Err       error
}

func (e *RemoteError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("remote %s: %s failure (status %d): %v", e.Op, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s: %s failure: %v", e.Op, kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a remote failure likely to succeed on retry.
func IsTransient(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Transient
}
