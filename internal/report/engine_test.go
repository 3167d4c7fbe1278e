package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/testutil"
)

type mockStore struct {
	events  []domain.Event
	listErr error

	gotStart time.Time
	gotEnd   time.Time
}

func (s *mockStore) ListLifecycleCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Event, error) {
	s.gotStart, s.gotEnd = windowStart, windowEnd
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.events, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ts(y int, m time.Month, d, hour int) *time.Time {
	t := time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
	return &t
}

func statusOn(t *testing.T, buckets []domain.DayStatusBucket, date time.Time) domain.EventStatus {
	t.Helper()
	for _, b := range buckets {
		if b.Date.Equal(date) {
			switch {
			case b.Pending == 1 && b.Active+b.Completed+b.Rejected == 0:
				return domain.StatusPending
			case b.Active == 1 && b.Pending+b.Completed+b.Rejected == 0:
				return domain.StatusActive
			case b.Completed == 1 && b.Pending+b.Active+b.Rejected == 0:
				return domain.StatusCompleted
			case b.Rejected == 1 && b.Pending+b.Active+b.Completed == 0:
				return domain.StatusRejected
			default:
				t.Fatalf("bucket %s has ambiguous counts %+v", date.Format("2006-01-02"), b)
			}
		}
	}
	t.Fatalf("no bucket for %s", date.Format("2006-01-02"))
	return ""
}

// The canonical lifecycle scenario: created Jan 1, approved Jan 2, ends
// Jan 5 00:00Z. Pending on day one, active until the end time, completed
// from then on.
func TestStatusByDay_FullLifecycle(t *testing.T) {
	store := &mockStore{events: []domain.Event{{
		ID:         uuid.New(),
		CreatedAt:  day(2024, 1, 1),
		ApprovedAt: ts(2024, 1, 2, 0),
		StartTime:  day(2024, 1, 4),
		EndTime:    day(2024, 1, 5),
	}}}

	buckets, err := New(store).StatusByDay(testutil.TestContext(t), day(2024, 1, 1), day(2024, 1, 6))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}
	if len(buckets) != 6 {
		t.Fatalf("got %d buckets, want 6", len(buckets))
	}

	want := map[string]domain.EventStatus{
		"2024-01-01": domain.StatusPending,
		"2024-01-02": domain.StatusActive,
		"2024-01-03": domain.StatusActive,
		"2024-01-04": domain.StatusActive,
		"2024-01-05": domain.StatusCompleted,
		"2024-01-06": domain.StatusCompleted,
	}
	for date, wantStatus := range want {
		d, _ := time.Parse("2006-01-02", date)
		if got := statusOn(t, buckets, d); got != wantStatus {
			t.Errorf("%s: status = %s, want %s", date, got, wantStatus)
		}
	}
}

func TestStatusByDay_NeverModeratedStaysPending(t *testing.T) {
	created := day(2024, 2, 1)
	store := &mockStore{events: []domain.Event{{
		ID:        uuid.New(),
		CreatedAt: created,
		StartTime: day(2024, 2, 20),
		EndTime:   day(2024, 2, 21),
	}}}

	buckets, err := New(store).StatusByDay(testutil.TestContext(t), created, created.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}

	for _, d := range []time.Time{created, created.AddDate(0, 0, 5)} {
		if got := statusOn(t, buckets, d); got != domain.StatusPending {
			t.Errorf("%s: status = %s, want pending", d.Format("2006-01-02"), got)
		}
	}
}

// Rejection wins from its day onward regardless of approval, and earlier
// days keep their pre-rejection inferred status.
func TestStatusByDay_RejectionOverridesFromItsDayOn(t *testing.T) {
	store := &mockStore{events: []domain.Event{{
		ID:         uuid.New(),
		CreatedAt:  day(2024, 3, 1),
		ApprovedAt: ts(2024, 3, 2, 9),
		RejectedAt: ts(2024, 3, 3, 15),
		StartTime:  day(2024, 3, 10),
		EndTime:    day(2024, 3, 11),
	}}}

	buckets, err := New(store).StatusByDay(testutil.TestContext(t), day(2024, 3, 1), day(2024, 3, 6))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}

	want := map[string]domain.EventStatus{
		"2024-03-01": domain.StatusPending,
		"2024-03-02": domain.StatusActive,
		"2024-03-03": domain.StatusRejected,
		"2024-03-04": domain.StatusRejected,
		"2024-03-05": domain.StatusRejected,
		"2024-03-06": domain.StatusRejected,
	}
	for date, wantStatus := range want {
		d, _ := time.Parse("2006-01-02", date)
		if got := statusOn(t, buckets, d); got != wantStatus {
			t.Errorf("%s: status = %s, want %s", date, got, wantStatus)
		}
	}
}

func TestStatusByDay_EventCreatedMidWindowContributesNothingBefore(t *testing.T) {
	store := &mockStore{events: []domain.Event{{
		ID:        uuid.New(),
		CreatedAt: time.Date(2024, 4, 3, 14, 30, 0, 0, time.UTC),
		StartTime: day(2024, 4, 10),
		EndTime:   day(2024, 4, 11),
	}}}

	buckets, err := New(store).StatusByDay(testutil.TestContext(t), day(2024, 4, 1), day(2024, 4, 4))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}

	for _, b := range buckets[:2] {
		if total := b.Pending + b.Active + b.Completed + b.Rejected; total != 0 {
			t.Errorf("%s: total = %d, want 0 (event not yet created)", b.Date.Format("2006-01-02"), total)
		}
	}
	if got := statusOn(t, buckets, day(2024, 4, 3)); got != domain.StatusPending {
		t.Errorf("creation day status = %s, want pending", got)
	}
}

func TestStatusByDay_MalformedCreatedAtSkipped(t *testing.T) {
	good := domain.Event{
		ID:        uuid.New(),
		CreatedAt: day(2024, 5, 1),
		StartTime: day(2024, 5, 8),
		EndTime:   day(2024, 5, 9),
	}
	bad := domain.Event{
		ID:        uuid.New(),
		StartTime: day(2024, 5, 8),
		EndTime:   day(2024, 5, 9),
	}
	store := &mockStore{events: []domain.Event{good, bad}}

	buckets, err := New(store).StatusByDay(testutil.TestContext(t), day(2024, 5, 1), day(2024, 5, 2))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}
	for _, b := range buckets {
		if b.Pending != 1 {
			t.Errorf("%s: pending = %d, want 1 (malformed row skipped)", b.Date.Format("2006-01-02"), b.Pending)
		}
	}
}

func TestStatusByDay_EmptyWindowStillYieldsZeroBuckets(t *testing.T) {
	buckets, err := New(&mockStore{}).StatusByDay(testutil.TestContext(t), day(2024, 6, 1), day(2024, 6, 7))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want 7", len(buckets))
	}
	for i, b := range buckets {
		if want := day(2024, 6, 1).AddDate(0, 0, i); !b.Date.Equal(want) {
			t.Errorf("bucket %d date = %s, want %s (ascending)", i, b.Date, want)
		}
		if b.Pending+b.Active+b.Completed+b.Rejected != 0 {
			t.Errorf("bucket %d not zeroed: %+v", i, b)
		}
	}
}

func TestStatusByDay_SingleDayWindow(t *testing.T) {
	buckets, err := New(&mockStore{}).StatusByDay(testutil.TestContext(t), day(2024, 6, 1), day(2024, 6, 1))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(buckets))
	}
}

func TestStatusByDay_EndBeforeStartRejected(t *testing.T) {
	_, err := New(&mockStore{}).StatusByDay(testutil.TestContext(t), day(2024, 6, 2), day(2024, 6, 1))
	if err == nil {
		t.Fatal("want error for inverted interval")
	}
}

func TestStatusByDay_StoreErrorPropagates(t *testing.T) {
	store := &mockStore{listErr: errors.New("db down")}
	_, err := New(store).StatusByDay(testutil.TestContext(t), day(2024, 6, 1), day(2024, 6, 2))
	if err == nil {
		t.Fatal("want error when candidate fetch fails")
	}
}

func TestStatusByDay_WindowPassedToStore(t *testing.T) {
	store := &mockStore{}
	_, err := New(store).StatusByDay(testutil.TestContext(t), day(2024, 7, 1), day(2024, 7, 7))
	if err != nil {
		t.Fatalf("StatusByDay: %v", err)
	}
	if !store.gotStart.Equal(day(2024, 7, 1)) {
		t.Errorf("window start = %s", store.gotStart)
	}
	if !store.gotEnd.Equal(day(2024, 7, 8)) {
		t.Errorf("window end = %s, want exclusive end of final day", store.gotEnd)
	}
}
