package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/domain"
)

type createEventInput struct {
	CreatorID       uuid.UUID
	Title           string
	Description     string
	StartTime       time.Time
	EndTime         time.Time
	MaxParticipants int
}

func validateCreateEvent(req CreateEventRequest) (createEventInput, error) {
	var in createEventInput

	if req.CreatorID == "" {
		return in, fmt.Errorf("creator_id is required")
	}
	creatorID, err := uuid.Parse(req.CreatorID)
	if err != nil {
		return in, fmt.Errorf("invalid creator_id: %w", err)
	}

	if req.Title == "" {
		return in, fmt.Errorf("title is required")
	}

	if req.StartTime == "" {
		return in, fmt.Errorf("start_time is required")
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return in, fmt.Errorf("invalid start_time: %w", err)
	}

	if req.EndTime == "" {
		return in, fmt.Errorf("end_time is required")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return in, fmt.Errorf("invalid end_time: %w", err)
	}

	if !end.After(start) {
		return in, fmt.Errorf("end_time must be after start_time")
	}

	if req.MaxParticipants < 1 {
		return in, fmt.Errorf("max_participants must be at least 1")
	}

	in = createEventInput{
		CreatorID:       creatorID,
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       start.UTC(),
		EndTime:         end.UTC(),
		MaxParticipants: req.MaxParticipants,
	}
	return in, nil
}

func validateTransitionTarget(raw string) (domain.EventStatus, error) {
	if raw == "" {
		return "", fmt.Errorf("target is required")
	}
	target := domain.EventStatus(raw)
	if !target.Valid() {
		return "", fmt.Errorf("unknown target status %q", raw)
	}
	return target, nil
}

// actorFromHeaders builds the request authority from the X-Actor-ID and
// X-Actor-Role headers. Both are required on authenticated endpoints.
func actorFromHeaders(id, role string) (domain.Authority, error) {
	if id == "" {
		return domain.Authority{}, fmt.Errorf("X-Actor-ID header is required")
	}
	actorID, err := uuid.Parse(id)
	if err != nil {
		return domain.Authority{}, fmt.Errorf("invalid X-Actor-ID: %w", err)
	}

	if role == "" {
		return domain.Authority{}, fmt.Errorf("X-Actor-Role header is required")
	}
	r := domain.Role(role)
	if !r.Valid() {
		return domain.Authority{}, fmt.Errorf("unknown X-Actor-Role %q", role)
	}

	return domain.UserAuthority(r, actorID), nil
}

func parseDateParam(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: want YYYY-MM-DD", name)
	}
	return t, nil
}
