package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a scene, version or sync run is absent.
	ErrNotFound = errors.New("not found")

	// ErrSceneNotFound is returned when a version references an unknown scene.
	ErrSceneNotFound = fmt.Errorf("scene %w", ErrNotFound)

	// ErrConflict is returned when a write would break a catalog invariant.
	ErrConflict = errors.New("conflict")

	// ErrConstraintViolation is returned when the (batch_name, base_filename)
	// identity of a scene collides with a different scene_id.
	ErrConstraintViolation = fmt.Errorf("constraint violation: %w", ErrConflict)

	// ErrDependencyUnavailable is returned when the storage backend or the
	// catalog database cannot serve a call.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ValidationError describes one malformed field in a sync payload.
type ValidationError struct {
	Item   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Item, e.Field, e.Reason)
}

// BatchError aborts a whole reconcile call. Stats holds the counters
// accumulated before the abort; the catalog itself is unchanged.
type BatchError struct {
	Stats SyncStats
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("sync aborted after %d scenes: %v", e.Stats.ScenesSynced, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
