package transition

import (
	"errors"
	"fmt"

	"github.com/pitchside/pitchside/internal/domain"
)

// Sentinel errors. Store implementations MUST return ErrNotFound for an
// unknown event id and ErrConflict when the conditional update matched no
// row because the status changed between read and write.
var (
	ErrNotFound = errors.New("event not found")
	ErrConflict = errors.New("event was modified concurrently, re-fetch and retry")
)

// PermissionDeniedError carries the evaluator's denial reason.
type PermissionDeniedError struct {
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + e.Reason
}

// InvalidTransitionError reports a transition the state machine rejected.
type InvalidTransitionError struct {
	From   domain.EventStatus
	To     domain.EventStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// StoreUnavailableError wraps an unexpected store failure so callers can
// surface it as transient.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return "store unavailable: " + e.Err.Error()
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
