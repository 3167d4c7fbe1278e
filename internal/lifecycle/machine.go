// Package lifecycle holds the event status transition rules.
//
// The graph below is the single source of truth for which transitions
// exist; the permission evaluator and the sweeps consult it through
// Validate instead of duplicating transition logic.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/pitchside/pitchside/internal/domain"
)

// Decision is the outcome of validating a requested transition.
// Business rule violations are decisions, not errors.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// guard is a per-edge time condition checked after the graph lookup.
// A nil guard means the edge is unconditionally allowed.
type guard func(e domain.Event, now time.Time) Decision

// graph maps current status to its allowed targets. Adding a status means
// adding one entry here, nothing else.
var graph = map[domain.EventStatus]map[domain.EventStatus]guard{
	domain.StatusPending: {
		domain.StatusActive:   nil,
		domain.StatusRejected: nil,
	},
	domain.StatusActive: {
		domain.StatusCancelled: nil,
		domain.StatusCompleted: startReached,
	},
	domain.StatusCancelled: {
		domain.StatusActive: startInFuture,
	},
	domain.StatusRejected:  {},
	domain.StatusCompleted: {},
}

// startReached rejects completion of an event that has not started yet.
func startReached(e domain.Event, now time.Time) Decision {
	if e.StartTime.After(now) {
		return deny("event cannot be completed before it starts (starts %s)",
			e.StartTime.UTC().Format(time.RFC3339))
	}
	return allow()
}

// startInFuture rejects re-activation of a cancelled event once its start
// time has passed.
func startInFuture(e domain.Event, now time.Time) Decision {
	if !e.StartTime.After(now) {
		return deny("cancelled event can only be re-activated before its start time")
	}
	return allow()
}

// Validate decides whether e may transition to target at the given instant.
// Requesting the current status is a no-op violation, never silently
// ignored.
func Validate(e domain.Event, target domain.EventStatus, now time.Time) Decision {
	if target == e.Status {
		return deny("event is already %s", e.Status)
	}

	targets, ok := graph[e.Status]
	if !ok {
		return deny("unknown status %q", e.Status)
	}

	g, ok := targets[target]
	if !ok {
		if e.Status.IsTerminal() {
			return deny("%s is a terminal status", e.Status)
		}
		return deny("no transition from %s to %s", e.Status, target)
	}

	if g != nil {
		return g(e, now)
	}
	return allow()
}

// AllowedTargets returns the statuses reachable from s by the graph alone,
// ignoring time guards.
func AllowedTargets(s domain.EventStatus) []domain.EventStatus {
	targets := graph[s]
	out := make([]domain.EventStatus, 0, len(targets))
	for _, t := range domain.Statuses() {
		if _, ok := targets[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
