// Package postgres implements the event store gateway over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/api"
	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/report"
	"github.com/pitchside/pitchside/internal/sweep"
	"github.com/pitchside/pitchside/internal/transition"
)

// Store implements the transition, sweep, report and api store interfaces
// using PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a store over the given connection pool. opTimeout bounds
// every individual operation; zero disables the bound.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, opTimeout: opTimeout}
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// InsertEvent persists a newly created event.
func (s *Store) InsertEvent(ctx context.Context, e domain.Event) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertEvent,
		e.ID,
		e.CreatorID,
		e.Title,
		e.Description,
		string(e.Status),
		e.StartTime,
		e.EndTime,
		e.MaxParticipants,
		nullableTime(e.ApprovedAt),
		nullableTime(e.RejectedAt),
		e.CreatedAt,
		e.UpdatedAt,
	)
	return err
}

// GetEvent returns the event with the given id, or transition.ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	e, err := scanEvent(s.db.QueryRowContext(ctx, queryGetEventByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, transition.ErrNotFound
	}
	return e, err
}

// UpdateStatus applies the conditional status update. When zero rows
// match it distinguishes a vanished row (ErrNotFound) from a lost
// optimistic-concurrency race (ErrConflict) by re-reading the status.
func (s *Store) UpdateStatus(ctx context.Context, upd transition.StatusUpdate) (domain.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, queryUpdateEventStatus,
		upd.EventID,
		string(upd.To),
		nullableTime(upd.ApprovedAt),
		nullableTime(upd.RejectedAt),
		upd.UpdatedAt,
		string(upd.From),
	)

	e, err := scanEvent(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, err
	}

	// Either the row is gone or its status changed under us.
	var current string
	err = s.db.QueryRowContext(ctx, queryGetEventStatus, upd.EventID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, transition.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Event{}, transition.ErrConflict
}

// DeleteEvent removes an event. Missing rows report transition.ErrNotFound.
func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, queryDeleteEvent, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return transition.ErrNotFound
	}
	return nil
}

// ListEvents returns events, optionally filtered by status, paginated.
func (s *Store) ListEvents(ctx context.Context, status domain.EventStatus, limit, offset int) ([]domain.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx, queryListEvents, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, queryListEventsByStatus, string(status), limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListActiveEndedBefore returns active events whose end time passed.
func (s *Store) ListActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListActiveEndedBefore, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListPendingStartingBetween returns pending events starting in [from, to).
func (s *Store) ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListPendingStartingBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListLifecycleCandidates returns events whose lifecycle could overlap the
// report window.
func (s *Store) ListLifecycleCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Event, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListLifecycleCandidates, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListParticipants returns an event's participants, oldest first.
func (s *Store) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]domain.Participant, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListParticipantsByEventID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		e          domain.Event
		status     string
		approvedAt sql.NullTime
		rejectedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID,
		&e.CreatorID,
		&e.Title,
		&e.Description,
		&status,
		&e.StartTime,
		&e.EndTime,
		&e.MaxParticipants,
		&approvedAt,
		&rejectedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	e.Status = domain.EventStatus(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		e.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		e.RejectedAt = &t
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Compile-time interface assertions
var (
	_ transition.Store = (*Store)(nil)
	_ sweep.Store      = (*Store)(nil)
	_ report.Store     = (*Store)(nil)
	_ api.Store        = (*Store)(nil)
)
