package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside/internal/circuitbreaker"
	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/metrics"
)

var defaultBackoff = []time.Duration{
	0,
	30 * time.Second,
	2 * time.Minute,
}

const maxAttempts = 3

type WebhookSender interface {
	Send(ctx context.Context, req WebhookRequest) WebhookResult
}

// AnalyticsSink records transition counters as a side effect of delivery.
type AnalyticsSink interface {
	Record(ctx context.Context, event domain.TransitionEvent)
}

// Breaker gates delivery attempts per endpoint.
type Breaker interface {
	Allow(url string) error
	RecordSuccess(url string)
	RecordFailure(url string)
}

// MetricsSink records dispatcher metrics. Non-blocking, fire-and-forget.
type MetricsSink interface {
	DeliveryAttemptCompleted(attempt int, statusClass string, duration time.Duration)
	DeliveryOutcome(outcome string)
}

// Endpoint is the webhook destination every transition event is posted to.
type Endpoint struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

type Dispatcher struct {
	endpoint     Endpoint
	sender       WebhookSender
	breaker      Breaker       // optional, nil = disabled
	analytics    AnalyticsSink // optional, nil = disabled
	metrics      MetricsSink   // optional, nil = disabled
	backoff      []time.Duration
	drainTimeout time.Duration
}

func NewDispatcher(endpoint Endpoint, sender WebhookSender) *Dispatcher {
	return &Dispatcher{
		endpoint:     endpoint,
		sender:       sender,
		backoff:      defaultBackoff,
		drainTimeout: DefaultDrainTimeout,
	}
}

// WithDrainTimeout overrides the shutdown drain timeout.
func (d *Dispatcher) WithDrainTimeout(t time.Duration) *Dispatcher {
	if t > 0 {
		d.drainTimeout = t
	}
	return d
}

// WithBreaker attaches a circuit breaker to the dispatcher.
func (d *Dispatcher) WithBreaker(b Breaker) *Dispatcher {
	d.breaker = b
	return d
}

// WithAnalytics attaches an analytics sink to the dispatcher.
func (d *Dispatcher) WithAnalytics(sink AnalyticsSink) *Dispatcher {
	d.analytics = sink
	return d
}

// WithMetrics attaches a metrics sink to the dispatcher.
func (d *Dispatcher) WithMetrics(sink MetricsSink) *Dispatcher {
	d.metrics = sink
	return d
}

// Run processes events from the channel until the context is cancelled.
// After cancellation, it drains remaining buffered events with a timeout.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan domain.TransitionEvent) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ch)
			return
		case event := <-ch:
			if err := d.Deliver(ctx, event); err != nil {
				log.Printf("notify: deliver error: %v", err)
			}
		}
	}
}

// DefaultDrainTimeout is the maximum time to wait for buffered events
// during shutdown.
const DefaultDrainTimeout = 30 * time.Second

// drain processes remaining buffered events after the shutdown signal.
// Uses a background context since the main context is already cancelled.
func (d *Dispatcher) drain(ch <-chan domain.TransitionEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("notify: drain timeout, processed %d events", count)
			}
			return
		case event, ok := <-ch:
			if !ok {
				log.Printf("notify: drain complete, processed %d events", count)
				return
			}
			if err := d.Deliver(drainCtx, event); err != nil {
				log.Printf("notify: drain error: %v", err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("notify: drain complete, processed %d events", count)
			}
			return
		}
	}
}

// Deliver posts one transition event, retrying transient failures with
// backoff. Analytics is written on every event regardless of whether the
// webhook is reachable; it counts transitions, not deliveries.
func (d *Dispatcher) Deliver(ctx context.Context, event domain.TransitionEvent) error {
	d.writeAnalytics(ctx, event)

	if d.endpoint.URL == "" {
		return nil
	}

	if d.breaker != nil {
		if err := d.breaker.Allow(d.endpoint.URL); err != nil {
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				log.Printf("notify: event=%s skipped, circuit open", event.EventID)
				d.recordOutcome(metrics.OutcomeAbandoned)
				return nil
			}
			return err
		}
	}

	req := WebhookRequest{
		URL:     d.endpoint.URL,
		Secret:  d.endpoint.Secret,
		Timeout: d.endpoint.Timeout,
		Payload: WebhookPayload{
			EventID:    event.EventID.String(),
			FromStatus: string(event.From),
			ToStatus:   string(event.To),
			Cause:      string(event.Cause),
			OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339),
		},
	}

	var lastResult WebhookResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			idx := attempt - 1
			if idx >= len(d.backoff) {
				idx = len(d.backoff) - 1
			}
			backoff := d.backoff[idx]

			log.Printf("notify: event=%s attempt=%d backoff=%s", event.EventID, attempt, backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				return ctx.Err()
			case <-timer.C:
			}
		}

		req.DeliveryID = uuid.NewString()
		result := d.sender.Send(ctx, req)
		lastResult = result

		d.recordAttempt(attempt, result)

		if result.IsSuccess() {
			log.Printf("notify: event=%s delivered attempt=%d", event.EventID, attempt)
			if d.breaker != nil {
				d.breaker.RecordSuccess(d.endpoint.URL)
			}
			d.recordOutcome(metrics.OutcomeSuccess)
			return nil
		}

		if d.breaker != nil {
			d.breaker.RecordFailure(d.endpoint.URL)
		}

		if !result.IsRetryable() {
			log.Printf("notify: event=%s non-retryable status=%d", event.EventID, result.StatusCode)
			break
		}

		log.Printf("notify: event=%s attempt=%d failed status=%d err=%v",
			event.EventID, attempt, result.StatusCode, result.Error)
	}

	log.Printf("notify: event=%s failed status=%d err=%v", event.EventID, lastResult.StatusCode, lastResult.Error)
	d.recordOutcome(metrics.OutcomeFailed)
	return nil
}

func (d *Dispatcher) writeAnalytics(ctx context.Context, event domain.TransitionEvent) {
	if d.analytics == nil {
		return
	}
	d.analytics.Record(ctx, event)
}

func (d *Dispatcher) recordAttempt(attempt int, result WebhookResult) {
	if d.metrics == nil {
		return
	}
	d.metrics.DeliveryAttemptCompleted(attempt, metrics.ClassifyStatus(result.StatusCode, result.Error), result.Duration)
}

func (d *Dispatcher) recordOutcome(outcome string) {
	if d.metrics != nil {
		d.metrics.DeliveryOutcome(outcome)
	}
}
