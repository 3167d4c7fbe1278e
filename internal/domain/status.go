package domain

type EventStatus string

const (
	StatusPending   EventStatus = "pending"
	StatusActive    EventStatus = "active"
	StatusRejected  EventStatus = "rejected"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

// Statuses lists every known event status.
func Statuses() []EventStatus {
	return []EventStatus{
		StatusPending,
		StatusActive,
		StatusRejected,
		StatusCancelled,
		StatusCompleted,
	}
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s EventStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}
