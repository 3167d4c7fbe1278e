package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a scheduled social-sports gathering. Its status is only ever
// mutated through the transition executor's conditional update.
type Event struct {
	ID        uuid.UUID
	CreatorID uuid.UUID

	Title       string
	Description string
	Status      EventStatus

	StartTime       time.Time
	EndTime         time.Time
	MaxParticipants int

	// ApprovedAt is set exactly once, on the first pending->active
	// transition. RejectedAt is set exactly once, on ->rejected.
	// Both are retained permanently; together with CreatedAt and EndTime
	// they are the full lifecycle audit trail.
	ApprovedAt *time.Time
	RejectedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
