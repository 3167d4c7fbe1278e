package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionCause identifies what initiated a status transition.
type TransitionCause string

const (
	CauseUser            TransitionCause = "user"
	CauseCompletionSweep TransitionCause = "completion_sweep"
	CauseAutoRejectSweep TransitionCause = "auto_reject_sweep"
)

// TransitionEvent is emitted after a status transition is durably applied.
// Delivery is best-effort; the transition itself never rolls back on
// notification failure.
type TransitionEvent struct {
	EventID    uuid.UUID
	From       EventStatus
	To         EventStatus
	Cause      TransitionCause
	OccurredAt time.Time
}
