// Package transition orchestrates permission checks, state machine
// validation and the store's conditional update into one atomic operation.
package transition

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/lifecycle"
	"github.com/pitchside/pitchside/internal/permission"
)

// StatusUpdate is the single conditional write applied by the store. The
// update must only succeed if the row's status still equals From.
type StatusUpdate struct {
	EventID uuid.UUID
	From    domain.EventStatus
	To      domain.EventStatus

	// ApprovedAt and RejectedAt are set only when the specific edge taken
	// dictates it, never derived from the target status alone. The store
	// must never overwrite an already-set value.
	ApprovedAt *time.Time
	RejectedAt *time.Time

	UpdatedAt time.Time
}

type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error)
	// UpdateStatus applies the conditional update and returns the updated
	// row. Implementations MUST return ErrConflict when the condition
	// fails on an existing row and ErrNotFound when the row is gone.
	UpdateStatus(ctx context.Context, upd StatusUpdate) (domain.Event, error)
}

// Emitter receives transition events after the durable write. Emit
// failures are logged and swallowed.
type Emitter interface {
	Emit(ctx context.Context, event domain.TransitionEvent) error
}

// MetricsSink records transition outcomes. Non-blocking, fire-and-forget.
type MetricsSink interface {
	TransitionOutcome(outcome string)
}

// Outcome labels for MetricsSink.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeDenied     = "denied"
	OutcomeInvalid    = "invalid"
	OutcomeConflict   = "conflict"
	OutcomeStoreError = "store_error"
)

type Executor struct {
	store   Store
	emitter Emitter     // optional, nil = notifications disabled
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time
}

func New(store Store) *Executor {
	return &Executor{
		store: store,
		clock: time.Now,
	}
}

// WithEmitter attaches the notification emitter.
func (x *Executor) WithEmitter(e Emitter) *Executor {
	x.emitter = e
	return x
}

// WithMetrics attaches a metrics sink.
func (x *Executor) WithMetrics(m MetricsSink) *Executor {
	x.metrics = m
	return x
}

// Transition moves the event to target on behalf of actor. System
// authority bypasses the permission evaluator but never the state machine.
func (x *Executor) Transition(
	ctx context.Context,
	eventID uuid.UUID,
	target domain.EventStatus,
	actor domain.Authority,
	cause domain.TransitionCause,
) (domain.Event, error) {
	now := x.clock().UTC()

	e, err := x.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			x.record(OutcomeNotFound)
			return domain.Event{}, ErrNotFound
		}
		x.record(OutcomeStoreError)
		return domain.Event{}, &StoreUnavailableError{Err: err}
	}

	if !actor.System {
		if perm := permission.Evaluate(actor, e); !perm.Allowed {
			x.record(OutcomeDenied)
			return domain.Event{}, &PermissionDeniedError{Reason: perm.Reason}
		}
	}

	if dec := lifecycle.Validate(e, target, now); !dec.Allowed {
		x.record(OutcomeInvalid)
		return domain.Event{}, &InvalidTransitionError{From: e.Status, To: target, Reason: dec.Reason}
	}

	upd := StatusUpdate{
		EventID:   eventID,
		From:      e.Status,
		To:        target,
		UpdatedAt: now,
	}
	// approvedAt belongs to the pending->active edge alone: re-activating
	// a cancelled event must not touch it.
	if e.Status == domain.StatusPending && target == domain.StatusActive {
		upd.ApprovedAt = &now
	}
	if target == domain.StatusRejected {
		upd.RejectedAt = &now
	}

	updated, err := x.store.UpdateStatus(ctx, upd)
	if err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			x.record(OutcomeConflict)
			return domain.Event{}, ErrConflict
		case errors.Is(err, ErrNotFound):
			x.record(OutcomeNotFound)
			return domain.Event{}, ErrNotFound
		default:
			x.record(OutcomeStoreError)
			return domain.Event{}, &StoreUnavailableError{Err: err}
		}
	}

	x.record(OutcomeSuccess)
	x.emit(ctx, domain.TransitionEvent{
		EventID:    eventID,
		From:       e.Status,
		To:         target,
		Cause:      cause,
		OccurredAt: now,
	})

	return updated, nil
}

// emit sends the transition event best-effort. The transition is already
// the durable fact by the time this runs.
func (x *Executor) emit(ctx context.Context, event domain.TransitionEvent) {
	if x.emitter == nil {
		return
	}
	if err := x.emitter.Emit(ctx, event); err != nil {
		log.Printf("transition: emit failed event=%s %s->%s: %v",
			event.EventID, event.From, event.To, err)
	}
}

func (x *Executor) record(outcome string) {
	if x.metrics != nil {
		x.metrics.TransitionOutcome(outcome)
	}
}
