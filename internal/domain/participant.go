package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant records a user's membership in an event. The lifecycle
// engine never mutates participants; they are read-only input to
// notification fan-out.
type Participant struct {
	ID       uuid.UUID
	EventID  uuid.UUID
	UserID   uuid.UUID
	JoinedAt time.Time
}
