// Package sweep runs the two time-driven lifecycle sweeps: hourly
// auto-completion of ended events and five-minute auto-rejection of
// unmoderated events about to start.
//
// Both sweeps route through the transition executor, so they are safe to
// run concurrently with live user requests; a late duplicate sweep simply
// observes the event already in its terminal state and skips it.
package sweep

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/transition"
)

// Sweep kind labels, used in logs and metrics.
const (
	KindCompletion = "completion"
	KindAutoReject = "auto_reject"
)

type Store interface {
	// ListActiveEndedBefore returns active events whose end time passed
	// before the cutoff.
	ListActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Event, error)
	// ListPendingStartingBetween returns pending events starting within
	// [from, to).
	ListPendingStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Event, error)
}

type Executor interface {
	Transition(ctx context.Context, eventID uuid.UUID, target domain.EventStatus,
		actor domain.Authority, cause domain.TransitionCause) (domain.Event, error)
}

// MetricsSink records sweep metrics. Non-blocking, fire-and-forget.
type MetricsSink interface {
	SweepStarted(kind string)
	SweepCompleted(kind string, duration time.Duration, transitioned, skipped int, err error)
}

type Config struct {
	// CompletionInterval is the completion sweep cadence. Default: 1h.
	CompletionInterval time.Duration

	// AutoRejectInterval is the auto-rejection sweep cadence. Default: 5m.
	AutoRejectInterval time.Duration

	// AutoRejectWindow is how far ahead of its start time an unmoderated
	// event is auto-rejected. Default: 30m.
	AutoRejectWindow time.Duration
}

// DefaultConfig returns the production cadences.
func DefaultConfig() Config {
	return Config{
		CompletionInterval: time.Hour,
		AutoRejectInterval: 5 * time.Minute,
		AutoRejectWindow:   30 * time.Minute,
	}
}

// Sweeper owns the periodic sweep lifecycle. Create with New, then Start
// and Stop; the sweeps can also be invoked directly by an external timer.
type Sweeper struct {
	config  Config
	store   Store
	exec    Executor
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time

	runner *cron.Cron
	cancel context.CancelFunc
}

func New(config Config, store Store, exec Executor) *Sweeper {
	if config.CompletionInterval <= 0 {
		config.CompletionInterval = time.Hour
	}
	if config.AutoRejectInterval <= 0 {
		config.AutoRejectInterval = 5 * time.Minute
	}
	if config.AutoRejectWindow <= 0 {
		config.AutoRejectWindow = 30 * time.Minute
	}
	return &Sweeper{
		config: config,
		store:  store,
		exec:   exec,
		clock:  time.Now,
	}
}

// WithMetrics attaches a metrics sink to the sweeper.
func (s *Sweeper) WithMetrics(m MetricsSink) *Sweeper {
	s.metrics = m
	return s
}

// Start schedules both sweeps. SkipIfStillRunning serializes sweeps of the
// same kind: a tick firing while the previous run is in flight is dropped
// rather than stacked.
func (s *Sweeper) Start() error {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())

	s.runner = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	if _, err := s.runner.AddFunc("@every "+s.config.CompletionInterval.String(), func() {
		s.RunCompletionSweep(ctx)
	}); err != nil {
		return err
	}
	if _, err := s.runner.AddFunc("@every "+s.config.AutoRejectInterval.String(), func() {
		s.RunAutoRejectSweep(ctx)
	}); err != nil {
		return err
	}

	s.runner.Start()
	log.Printf("sweep: started (completion=%s, auto_reject=%s, window=%s)",
		s.config.CompletionInterval, s.config.AutoRejectInterval, s.config.AutoRejectWindow)
	return nil
}

// Stop cancels in-flight sweeps and waits for running jobs to return.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.runner != nil {
		<-s.runner.Stop().Done()
	}
	log.Println("sweep: stopped")
}

// RunCompletionSweep moves every active event whose end time has passed to
// completed. One bad event never aborts the batch.
func (s *Sweeper) RunCompletionSweep(ctx context.Context) {
	s.sweepStarted(KindCompletion)
	start := s.clock().UTC()

	events, err := s.store.ListActiveEndedBefore(ctx, start)
	if err != nil {
		log.Printf("sweep: completion list failed: %v", err)
		s.sweepCompleted(KindCompletion, s.clock().UTC().Sub(start), 0, 0, err)
		return
	}

	transitioned, skipped := s.apply(ctx, KindCompletion, events,
		domain.StatusCompleted, domain.CauseCompletionSweep)

	if transitioned > 0 || skipped > 0 {
		log.Printf("sweep: completed kind=%s transitioned=%d skipped=%d candidates=%d",
			KindCompletion, transitioned, skipped, len(events))
	}
	s.sweepCompleted(KindCompletion, s.clock().UTC().Sub(start), transitioned, skipped, nil)
}

// RunAutoRejectSweep rejects pending events starting within the
// auto-reject window: an unapproved event about to start can no longer be
// meaningfully moderated.
func (s *Sweeper) RunAutoRejectSweep(ctx context.Context) {
	s.sweepStarted(KindAutoReject)
	start := s.clock().UTC()

	events, err := s.store.ListPendingStartingBetween(ctx, start, start.Add(s.config.AutoRejectWindow))
	if err != nil {
		log.Printf("sweep: auto-reject list failed: %v", err)
		s.sweepCompleted(KindAutoReject, s.clock().UTC().Sub(start), 0, 0, err)
		return
	}

	transitioned, skipped := s.apply(ctx, KindAutoReject, events,
		domain.StatusRejected, domain.CauseAutoRejectSweep)

	if transitioned > 0 || skipped > 0 {
		log.Printf("sweep: completed kind=%s transitioned=%d skipped=%d candidates=%d",
			KindAutoReject, transitioned, skipped, len(events))
	}
	s.sweepCompleted(KindAutoReject, s.clock().UTC().Sub(start), transitioned, skipped, nil)
}

// apply runs the per-event transitions, isolating individual failures.
func (s *Sweeper) apply(ctx context.Context, kind string, events []domain.Event,
	target domain.EventStatus, cause domain.TransitionCause) (transitioned, skipped int) {

	sys := domain.SystemAuthority()
	for _, e := range events {
		if ctx.Err() != nil {
			log.Printf("sweep: %s interrupted after %d/%d events", kind, transitioned+skipped, len(events))
			return transitioned, skipped
		}

		_, err := s.exec.Transition(ctx, e.ID, target, sys, cause)
		switch {
		case err == nil:
			transitioned++
		case isExpectedSkip(err):
			// A live request or an overlapping sweep got there first.
			skipped++
		default:
			log.Printf("sweep: %s event=%s failed: %v", kind, e.ID, err)
			skipped++
		}
	}
	return transitioned, skipped
}

// isExpectedSkip reports whether the error is the normal residue of racing
// another transition on the same event.
func isExpectedSkip(err error) bool {
	var invalid *transition.InvalidTransitionError
	return errors.As(err, &invalid) ||
		errors.Is(err, transition.ErrConflict) ||
		errors.Is(err, transition.ErrNotFound)
}

func (s *Sweeper) sweepStarted(kind string) {
	if s.metrics != nil {
		s.metrics.SweepStarted(kind)
	}
}

func (s *Sweeper) sweepCompleted(kind string, d time.Duration, transitioned, skipped int, err error) {
	if s.metrics != nil {
		s.metrics.SweepCompleted(kind, d, transitioned, skipped, err)
	}
}
