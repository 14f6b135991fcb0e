package camera

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCameraUnavailable is returned when every tier was rejected.
	ErrCameraUnavailable = errors.New("camera: unavailable")

	// ErrSuperseded is returned when a newer acquisition finished first.
	ErrSuperseded = errors.New("camera: acquisition superseded")

	// ErrStreamStopped is returned by Next after Stop.
	ErrStreamStopped = errors.New("camera: stream stopped")

	// ErrConstraintUnsatisfied is returned by devices that cannot honor a constraint.
	ErrConstraintUnsatisfied = errors.New("camera: constraint unsatisfied")
)

// TierError records why a single tier was rejected.
type TierError struct {
	Tier Tier
	Err  error
}

// Error implements the error interface.
func (e *TierError) Error() string {
	return fmt.Sprintf("camera [%s]: %v", e.Tier, e.Err)
}

// Unwrap returns the underlying error.
func (e *TierError) Unwrap() error {
	return e.Err
}

// ExhaustedError aggregates the failures of all tiers.
type ExhaustedError struct {
	Errors []*TierError
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%v: all %d tiers failed: %s", ErrCameraUnavailable, len(e.Errors), strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrCameraUnavailable) hold.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrCameraUnavailable
}

// Unwrap returns the per-tier errors.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}
