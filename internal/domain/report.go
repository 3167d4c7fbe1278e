package domain

import "time"

// DayStatusBucket aggregates inferred event statuses for one calendar day.
// It is derived on every report call and never persisted.
type DayStatusBucket struct {
	Date time.Time // midnight UTC

	Pending   int
	Active    int
	Completed int
	Rejected  int
}

// Add increments the counter for the given inferred status. Statuses the
// reconstruction rules cannot produce (cancelled) are ignored.
func (b *DayStatusBucket) Add(s EventStatus) {
	switch s {
	case StatusPending:
		b.Pending++
	case StatusActive:
		b.Active++
	case StatusCompleted:
		b.Completed++
	case StatusRejected:
		b.Rejected++
	}
}
