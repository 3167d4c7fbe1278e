package api

import (
	"time"

	"github.com/pitchside/pitchside/internal/domain"
)

type CreateEventRequest struct {
	CreatorID       string `json:"creator_id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxParticipants int    `json:"max_participants"`
}

type TransitionRequest struct {
	Target string `json:"target"`
}

type EventResponse struct {
	ID              string `json:"id"`
	CreatorID       string `json:"creator_id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxParticipants int    `json:"max_participants"`
	ApprovedAt      string `json:"approved_at,omitempty"`
	RejectedAt      string `json:"rejected_at,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type ParticipantResponse struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
	JoinedAt string `json:"joined_at"`
}

type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
}

type ListParticipantsResponse struct {
	Participants []ParticipantResponse `json:"participants"`
}

type DayBucketResponse struct {
	Date      string `json:"date"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Completed int    `json:"completed"`
	Rejected  int    `json:"rejected"`
}

type StatusByDayResponse struct {
	Days []DayBucketResponse `json:"days"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func eventResponse(e domain.Event) EventResponse {
	resp := EventResponse{
		ID:              e.ID.String(),
		CreatorID:       e.CreatorID.String(),
		Title:           e.Title,
		Description:     e.Description,
		Status:          string(e.Status),
		StartTime:       formatTime(e.StartTime),
		EndTime:         formatTime(e.EndTime),
		MaxParticipants: e.MaxParticipants,
		CreatedAt:       formatTime(e.CreatedAt),
		UpdatedAt:       formatTime(e.UpdatedAt),
	}
	if e.ApprovedAt != nil {
		resp.ApprovedAt = formatTime(*e.ApprovedAt)
	}
	if e.RejectedAt != nil {
		resp.RejectedAt = formatTime(*e.RejectedAt)
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
