package dock

import (
	"errors"
	"fmt"
)

// Domain errors for the dock package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, dock.ErrRunNotFound) {
//	    // nothing persisted yet
//	}
var (
	// ErrDetectionFailed is wrapped by every DetectionFailure.
	ErrDetectionFailed = errors.New("dock: detection failed")

	// ErrInvalidMethod is returned when a method name is not recognised.
	ErrInvalidMethod = errors.New("dock: invalid method")

	// ErrInvalidPattern is returned when a model pattern does not compile.
	ErrInvalidPattern = errors.New("dock: invalid model pattern")

	// ErrRunNotFound is returned when no persisted scan run exists.
	ErrRunNotFound = errors.New("dock: scan run not found")

	// ErrInvalidRun is returned when a run cannot be persisted.
	ErrInvalidRun = errors.New("dock: invalid scan run")
)

// DetectionFailure reports that a detection method could not complete.
//
// Resolve records failures in Inventory.Attempts and treats the method as
// having found nothing; they are never returned to the caller.
type DetectionFailure struct {
	Method Method
	Err    error
}

// Error implements error.
func (f *DetectionFailure) Error() string {
	return fmt.Sprintf("dock: %s detection failed: %v", f.Method, f.Err)
}

// Unwrap exposes both ErrDetectionFailed and the underlying cause to errors.Is.
func (f *DetectionFailure) Unwrap() []error {
	return []error{ErrDetectionFailed, f.Err}
}

// NewDetectionFailure wraps err as a DetectionFailure for method.
// An err that is already a DetectionFailure is returned unchanged.
func NewDetectionFailure(method Method, err error) error {
	var existing *DetectionFailure
	if errors.As(err, &existing) {
		return err
	}
	return &DetectionFailure{Method: method, Err: err}
}
