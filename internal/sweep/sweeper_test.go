package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/testutil"
	"github.com/pitchside/pitchside/internal/transition"
)

// mockStore serves sweep candidate queries from an in-memory event set.
type mockStore struct {
	mu      sync.Mutex
	events  map[uuid.UUID]domain.Event
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{events: make(map[uuid.UUID]domain.Event)}
}

func (s *mockStore) put(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *mockStore) status(id uuid.UUID) domain.EventStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].Status
}

func (s *mockStore) ListActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Event
	for _, e := range s.events {
		if e.Status == domain.StatusActive && e.EndTime.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *mockStore) ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Event
	for _, e := range s.events {
		if e.Status == domain.StatusPending && !e.StartTime.Before(from) && e.StartTime.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// realExecutor wires the actual transition executor over the mock store so
// sweep tests exercise the same validation path as production.
type execStoreAdapter struct {
	s *mockStore
}

func (a *execStoreAdapter) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	e, ok := a.s.events[id]
	if !ok {
		return domain.Event{}, transition.ErrNotFound
	}
	return e, nil
}

func (a *execStoreAdapter) UpdateStatus(ctx context.Context, upd transition.StatusUpdate) (domain.Event, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	e, ok := a.s.events[upd.EventID]
	if !ok {
		return domain.Event{}, transition.ErrNotFound
	}
	if e.Status != upd.From {
		return domain.Event{}, transition.ErrConflict
	}
	e.Status = upd.To
	if upd.ApprovedAt != nil && e.ApprovedAt == nil {
		e.ApprovedAt = upd.ApprovedAt
	}
	if upd.RejectedAt != nil && e.RejectedAt == nil {
		e.RejectedAt = upd.RejectedAt
	}
	a.s.events[upd.EventID] = e
	return e, nil
}

// failingExecutor fails every transition, for batch isolation tests.
type failingExecutor struct {
	calls int
}

func (f *failingExecutor) Transition(ctx context.Context, eventID uuid.UUID, target domain.EventStatus,
	actor domain.Authority, cause domain.TransitionCause) (domain.Event, error) {
	f.calls++
	return domain.Event{}, &transition.StoreUnavailableError{Err: errors.New("connection reset")}
}

func newSweeper(store *mockStore, clock *testutil.FakeClock) *Sweeper {
	exec := transition.New(&execStoreAdapter{s: store})
	s := New(DefaultConfig(), store, exec)
	s.clock = clock.Now
	return s
}

func activeEvent(end time.Time) domain.Event {
	return domain.Event{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Status:    domain.StatusActive,
		StartTime: end.Add(-2 * time.Hour),
		EndTime:   end,
	}
}

func pendingEvent(start time.Time) domain.Event {
	return domain.Event{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Status:    domain.StatusPending,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}
}

func TestCompletionSweep_CompletesEndedEvents(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()

	ended := activeEvent(clock.Now().Add(-time.Hour))
	running := activeEvent(clock.Now().Add(time.Hour))
	store.put(ended)
	store.put(running)

	s := newSweeper(store, clock)
	s.RunCompletionSweep(testutil.TestContext(t))

	if got := store.status(ended.ID); got != domain.StatusCompleted {
		t.Errorf("ended event status = %s, want completed", got)
	}
	if got := store.status(running.ID); got != domain.StatusActive {
		t.Errorf("running event status = %s, want active (untouched)", got)
	}
}

func TestAutoRejectSweep_RejectsImminentPendingEvents(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()

	imminent := pendingEvent(clock.Now().Add(10 * time.Minute))
	distant := pendingEvent(clock.Now().Add(2 * time.Hour))
	started := pendingEvent(clock.Now().Add(-time.Minute)) // already started, outside window
	store.put(imminent)
	store.put(distant)
	store.put(started)

	s := newSweeper(store, clock)
	s.RunAutoRejectSweep(testutil.TestContext(t))

	if got := store.status(imminent.ID); got != domain.StatusRejected {
		t.Errorf("imminent event status = %s, want rejected", got)
	}
	if got := store.status(distant.ID); got != domain.StatusPending {
		t.Errorf("distant event status = %s, want pending (untouched)", got)
	}
	if got := store.status(started.ID); got != domain.StatusPending {
		t.Errorf("started event status = %s, want pending (outside window)", got)
	}
}

func TestAutoRejectSweep_SecondRunIsNoOp(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()

	e := pendingEvent(clock.Now().Add(10 * time.Minute))
	store.put(e)

	s := newSweeper(store, clock)
	ctx := testutil.TestContext(t)

	s.RunAutoRejectSweep(ctx)
	if got := store.status(e.ID); got != domain.StatusRejected {
		t.Fatalf("first run: status = %s, want rejected", got)
	}

	// Immediate duplicate run: the event is no longer pending, so it is
	// not even a candidate; and even if it were, the transition would be
	// an expected no-op.
	s.RunAutoRejectSweep(ctx)
	if got := store.status(e.ID); got != domain.StatusRejected {
		t.Errorf("second run: status = %s, want rejected", got)
	}
}

func TestCompletionSweep_DuplicateCandidateIsSkippedNotEscalated(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()

	e := activeEvent(clock.Now().Add(-time.Hour))
	store.put(e)

	s := newSweeper(store, clock)

	// A candidate list containing the same event twice stands in for two
	// overlapping sweeps racing on one row.
	transitioned, skipped := s.apply(testutil.TestContext(t), KindCompletion,
		[]domain.Event{e, e}, domain.StatusCompleted, domain.CauseCompletionSweep)

	if transitioned != 1 {
		t.Errorf("transitioned = %d, want 1", transitioned)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 (duplicate tolerated)", skipped)
	}
}

func TestSweep_IsolatesPerEventFailures(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()

	for i := 0; i < 3; i++ {
		store.put(activeEvent(clock.Now().Add(-time.Hour)))
	}

	exec := &failingExecutor{}
	s := New(DefaultConfig(), store, exec)
	s.clock = clock.Now

	s.RunCompletionSweep(testutil.TestContext(t))

	if exec.calls != 3 {
		t.Errorf("executor calls = %d, want 3 (batch not aborted)", exec.calls)
	}
}

func TestSweep_ListFailureAbortsQuietly(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()
	store.listErr = errors.New("db down")

	s := newSweeper(store, clock)
	// Must not panic; nothing to assert beyond that.
	s.RunCompletionSweep(testutil.TestContext(t))
	s.RunAutoRejectSweep(testutil.TestContext(t))
}

func TestSweeper_StartStop(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	store := newMockStore()

	s := newSweeper(store, clock)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
