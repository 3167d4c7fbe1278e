// Package permission decides whether an actor may request a transition on
// an event. It never performs side effects and never consults the
// transition graph; graph validity is the lifecycle package's job.
package permission

import (
	"github.com/pitchside/pitchside/internal/domain"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate applies the actor rules in order:
//
//  1. system authority and admins may request anything
//  2. non-admins who are not the creator are denied
//  3. the creator is denied while the event awaits moderation
//  4. the creator is denied once the event is rejected
//  5. otherwise the creator is permitted
func Evaluate(actor domain.Authority, e domain.Event) Decision {
	if actor.System {
		return Decision{Allowed: true}
	}

	if actor.Role == domain.RoleAdmin {
		return Decision{Allowed: true}
	}

	if actor.UserID != e.CreatorID {
		return Decision{Reason: "only the event creator or an admin may change this event"}
	}

	switch e.Status {
	case domain.StatusPending:
		return Decision{Reason: "event is awaiting moderation; only an admin may approve or reject it"}
	case domain.StatusRejected:
		return Decision{Reason: "event was rejected; no further creator action is possible"}
	default:
		return Decision{Allowed: true}
	}
}
