// Package api exposes the event lifecycle over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/transition"
)

// Pagination defaults and limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Store interface {
	InsertEvent(ctx context.Context, e domain.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context, status domain.EventStatus, limit, offset int) ([]domain.Event, error)
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]domain.Participant, error)
}

// Executor applies status transitions on behalf of request actors.
type Executor interface {
	Transition(ctx context.Context, eventID uuid.UUID, target domain.EventStatus,
		actor domain.Authority, cause domain.TransitionCause) (domain.Event, error)
}

// Reporter reconstructs per-day status counts for the reporting endpoint.
type Reporter interface {
	StatusByDay(ctx context.Context, start, end time.Time) ([]domain.DayStatusBucket, error)
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	store    Store
	exec     Executor
	reporter Reporter
	db       HealthChecker
	clock    func() time.Time
}

func NewHandler(store Store, exec Executor, reporter Reporter) *Handler {
	return &Handler{
		store:    store,
		exec:     exec,
		reporter: reporter,
		clock:    time.Now,
	}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/events" && r.Method == http.MethodPost:
		h.createEvent(w, r)

	case path == "/events" && r.Method == http.MethodGet:
		h.listEvents(w, r)

	case path == "/reports/status-by-day" && r.Method == http.MethodGet:
		h.statusByDay(w, r)

	case strings.HasSuffix(path, "/transition") && r.Method == http.MethodPost:
		h.transitionEvent(w, r)

	case strings.HasSuffix(path, "/participants") && r.Method == http.MethodGet:
		h.listParticipants(w, r)

	case strings.HasPrefix(path, "/events/") && r.Method == http.MethodGet:
		h.getEvent(w, r)

	case strings.HasPrefix(path, "/events/") && r.Method == http.MethodDelete:
		h.deleteEvent(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	in, err := validateCreateEvent(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.clock().UTC()
	e := domain.Event{
		ID:              uuid.New(),
		CreatorID:       in.CreatorID,
		Title:           in.Title,
		Description:     in.Description,
		Status:          domain.StatusPending,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		MaxParticipants: in.MaxParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.store.InsertEvent(r.Context(), e); err != nil {
		log.Printf("api: create event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, eventResponse(e))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var status domain.EventStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = domain.EventStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(raw))
			return
		}
	}

	events, err := h.store.ListEvents(r.Context(), status, limit, offset)
	if err != nil {
		log.Printf("api: list events error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	resp := ListEventsResponse{Events: make([]EventResponse, len(events))}
	for i, e := range events {
		resp.Events[i] = eventResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDFromPath(w, r.URL.Path, 2)
	if !ok {
		return
	}

	e, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, transition.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("api: get event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, eventResponse(e))
}

func (h *Handler) transitionEvent(w http.ResponseWriter, r *http.Request) {
	// Path: /events/{id}/transition
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "events" || parts[2] != "transition" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	actor, err := actorFromHeaders(r.Header.Get("X-Actor-ID"), r.Header.Get("X-Actor-Role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	target, err := validateTransitionTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.exec.Transition(r.Context(), id, target, actor, domain.CauseUser)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse(updated))
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	// Path: /events/{id}/participants
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "events" || parts[2] != "participants" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if _, err := h.store.GetEvent(r.Context(), id); err != nil {
		if errors.Is(err, transition.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("api: list participants error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}

	participants, err := h.store.ListParticipants(r.Context(), id)
	if err != nil {
		log.Printf("api: list participants error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}

	resp := ListParticipantsResponse{Participants: make([]ParticipantResponse, len(participants))}
	for i, p := range participants {
		resp.Participants[i] = ParticipantResponse{
			ID:       p.ID.String(),
			EventID:  p.EventID.String(),
			UserID:   p.UserID.String(),
			JoinedAt: formatTime(p.JoinedAt),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDFromPath(w, r.URL.Path, 2)
	if !ok {
		return
	}

	actor, err := actorFromHeaders(r.Header.Get("X-Actor-ID"), r.Header.Get("X-Actor-Role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, transition.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("api: delete event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	// Deletion is reserved for admins and the creator.
	if actor.Role != domain.RoleAdmin && actor.UserID != e.CreatorID {
		writeError(w, http.StatusForbidden, "only the creator or an admin can delete an event")
		return
	}

	if err := h.store.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, transition.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("api: delete event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) statusByDay(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam("start", r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam("end", r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	buckets, err := h.reporter.StatusByDay(r.Context(), start, end)
	if err != nil {
		log.Printf("api: status-by-day error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	resp := StatusByDayResponse{Days: make([]DayBucketResponse, len(buckets))}
	for i, b := range buckets {
		resp.Days[i] = DayBucketResponse{
			Date:      b.Date.Format("2006-01-02"),
			Pending:   b.Pending,
			Active:    b.Active,
			Completed: b.Completed,
			Rejected:  b.Rejected,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeTransitionError maps executor errors onto HTTP statuses.
func writeTransitionError(w http.ResponseWriter, err error) {
	var denied *transition.PermissionDeniedError
	var invalid *transition.InvalidTransitionError
	var unavailable *transition.StoreUnavailableError

	switch {
	case errors.Is(err, transition.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, denied.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, transition.ErrConflict):
		writeError(w, http.StatusConflict, "event was modified concurrently, retry")
	case errors.As(err, &unavailable):
		log.Printf("api: transition store error: %v", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		log.Printf("api: transition error: %v", err)
		writeError(w, http.StatusInternalServerError, "transition failed")
	}
}

// eventIDFromPath parses /events/{id} style paths with the given segment
// count, writing the error response itself on failure.
func eventIDFromPath(w http.ResponseWriter, path string, segments int) (uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != segments || parts[0] != "events" {
		writeError(w, http.StatusNotFound, "not found")
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return uuid.UUID{}, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// parsePagination extracts and validates limit/offset query parameters.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultLimit
	offset = 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
		if limit < 0 {
			return 0, 0, strconv.ErrRange
		}
		if limit > MaxLimit {
			return 0, 0, &limitExceededError{max: MaxLimit}
		}
		if limit == 0 {
			limit = DefaultLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
		if offset < 0 {
			return 0, 0, strconv.ErrRange
		}
	}

	return limit, offset, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}
