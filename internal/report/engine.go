// Package report reconstructs, per calendar day, the status every event
// held on that day, from lifecycle timestamps alone. There is no persisted
// history table; the audit-trail timestamps (createdAt, approvedAt,
// rejectedAt, endTime) are sufficient to replay the lifecycle.
//
// The engine is a pure read-side projection: it never writes and is
// recomputed fresh on every call.
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pitchside/pitchside/internal/domain"
)

type Store interface {
	// ListLifecycleCandidates returns events that could plausibly have
	// held any status during [windowStart, windowEnd): created before the
	// window closed and not definitively ended (rejected or past their
	// end time) strictly before it opened.
	ListLifecycleCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Event, error)
}

// MetricsSink records report metrics. Non-blocking, fire-and-forget.
type MetricsSink interface {
	ReportCompleted(duration time.Duration, days, candidates int)
}

type Engine struct {
	store   Store
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time
}

func New(store Store) *Engine {
	return &Engine{
		store: store,
		clock: time.Now,
	}
}

// WithMetrics attaches a metrics sink to the engine.
func (e *Engine) WithMetrics(m MetricsSink) *Engine {
	e.metrics = m
	return e
}

// StatusByDay returns one bucket per calendar day in the closed interval
// [start, end], ascending, every counter present even when zero. Inputs
// are normalized to midnight UTC.
func (e *Engine) StatusByDay(ctx context.Context, start, end time.Time) ([]domain.DayStatusBucket, error) {
	began := e.clock()

	start = midnightUTC(start)
	end = midnightUTC(end)
	if end.Before(start) {
		return nil, fmt.Errorf("report: end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	windowEnd := end.AddDate(0, 0, 1)
	candidates, err := e.store.ListLifecycleCandidates(ctx, start, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("report: list candidates: %w", err)
	}

	var buckets []domain.DayStatusBucket
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		bucket := domain.DayStatusBucket{Date: day}
		nextDay := day.AddDate(0, 0, 1)

		for _, ev := range candidates {
			if ev.CreatedAt.IsZero() {
				// Malformed row: warn and keep going, one bad record must
				// not sink the whole report.
				if day.Equal(start) {
					log.Printf("report: event %s has no created_at, skipping", ev.ID)
				}
				continue
			}
			if status, existed := inferStatus(ev, day, nextDay); existed {
				bucket.Add(status)
			}
		}

		buckets = append(buckets, bucket)
	}

	if e.metrics != nil {
		e.metrics.ReportCompleted(e.clock().Sub(began), len(buckets), len(candidates))
	}
	return buckets, nil
}

// inferStatus resolves the status the event held on the day spanning
// [dayStart, nextDay). The rules are checked in strict priority order:
// several can hold at once and the first match wins.
//
//  1. not yet created that day -> did not exist
//  2. rejected by the end of the day -> rejected
//  3. ended before the day began -> completed (a time fact, independent
//     of whether a completion was ever recorded)
//  4. not yet approved by the end of the day -> pending
//  5. otherwise -> active
func inferStatus(ev domain.Event, dayStart, nextDay time.Time) (domain.EventStatus, bool) {
	if !ev.CreatedAt.Before(nextDay) {
		return "", false
	}
	if ev.RejectedAt != nil && ev.RejectedAt.Before(nextDay) {
		return domain.StatusRejected, true
	}
	if !ev.EndTime.After(dayStart) {
		return domain.StatusCompleted, true
	}
	if ev.ApprovedAt == nil || !ev.ApprovedAt.Before(nextDay) {
		return domain.StatusPending, true
	}
	return domain.StatusActive, true
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
