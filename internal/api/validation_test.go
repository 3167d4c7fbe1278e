package api

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/domain"
)

func validRequest() CreateEventRequest {
	return CreateEventRequest{
		CreatorID:       "00000000-0000-0000-0000-0000000000aa",
		Title:           "Sunday five-a-side",
		StartTime:       "2024-06-01T10:00:00Z",
		EndTime:         "2024-06-01T12:00:00Z",
		MaxParticipants: 10,
	}
}

func TestValidateCreateEvent(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateEventRequest)
		wantErr bool
	}{
		{"valid", func(r *CreateEventRequest) {}, false},
		{"missing creator", func(r *CreateEventRequest) { r.CreatorID = "" }, true},
		{"bad creator uuid", func(r *CreateEventRequest) { r.CreatorID = "abc" }, true},
		{"missing title", func(r *CreateEventRequest) { r.Title = "" }, true},
		{"missing start", func(r *CreateEventRequest) { r.StartTime = "" }, true},
		{"bad start format", func(r *CreateEventRequest) { r.StartTime = "June 1st" }, true},
		{"missing end", func(r *CreateEventRequest) { r.EndTime = "" }, true},
		{"end equals start", func(r *CreateEventRequest) { r.EndTime = r.StartTime }, true},
		{"end before start", func(r *CreateEventRequest) {
			r.StartTime = "2024-06-01T12:00:00Z"
			r.EndTime = "2024-06-01T10:00:00Z"
		}, true},
		{"zero participants", func(r *CreateEventRequest) { r.MaxParticipants = 0 }, true},
		{"negative participants", func(r *CreateEventRequest) { r.MaxParticipants = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := validateCreateEvent(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCreateEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreateEvent_NormalizesToUTC(t *testing.T) {
	req := validRequest()
	req.StartTime = "2024-06-01T12:00:00+02:00"
	req.EndTime = "2024-06-01T14:00:00+02:00"

	in, err := validateCreateEvent(req)
	if err != nil {
		t.Fatalf("validateCreateEvent: %v", err)
	}
	if in.StartTime.Location().String() != "UTC" {
		t.Errorf("start location = %s, want UTC", in.StartTime.Location())
	}
	if in.StartTime.Hour() != 10 {
		t.Errorf("start hour = %d, want 10 (UTC)", in.StartTime.Hour())
	}
}

func TestValidateTransitionTarget(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.EventStatus
		wantErr bool
	}{
		{"active", domain.StatusActive, false},
		{"rejected", domain.StatusRejected, false},
		{"cancelled", domain.StatusCancelled, false},
		{"completed", domain.StatusCompleted, false},
		{"pending", domain.StatusPending, false},
		{"", "", true},
		{"archived", "", true},
		{"ACTIVE", "", true},
	}

	for _, tt := range tests {
		got, err := validateTransitionTarget(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateTransitionTarget(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("validateTransitionTarget(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestActorFromHeaders(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		id      string
		role    string
		wantErr bool
	}{
		{"valid user", id.String(), "user", false},
		{"valid staff", id.String(), "staff", false},
		{"valid admin", id.String(), "admin", false},
		{"missing id", "", "user", true},
		{"bad id", "xyz", "user", true},
		{"missing role", id.String(), "", true},
		{"unknown role", id.String(), "superuser", true},
		{"system role rejected", id.String(), "system", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, err := actorFromHeaders(tt.id, tt.role)
			if (err != nil) != tt.wantErr {
				t.Fatalf("actorFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && actor.System {
				t.Error("header-derived authority must not be system")
			}
		})
	}
}

func TestParseDateParam(t *testing.T) {
	if _, err := parseDateParam("start", "2024-01-15"); err != nil {
		t.Errorf("valid date rejected: %v", err)
	}
	if _, err := parseDateParam("start", ""); err == nil {
		t.Error("empty date accepted")
	}
	if _, err := parseDateParam("start", "2024-01-15T10:00:00Z"); err == nil {
		t.Error("timestamp accepted where a date is required")
	}
}
