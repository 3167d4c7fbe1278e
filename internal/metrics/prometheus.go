package metrics

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Transition metrics
	transitionsTotal *prometheus.CounterVec

	// Sweep metrics
	sweepsTotal      *prometheus.CounterVec
	sweepErrorsTotal *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
	sweepTransitions *prometheus.CounterVec
	sweepSkips       *prometheus.CounterVec

	// Report metrics
	reportDuration   prometheus.Histogram
	reportDays       prometheus.Histogram
	reportCandidates prometheus.Histogram

	// Notifier metrics
	deliveryAttemptsTotal *prometheus.CounterVec
	deliveryOutcomesTotal *prometheus.CounterVec
	webhookDuration       prometheus.Histogram
	bufferSize            prometheus.Gauge
	emitErrorsTotal       prometheus.Counter
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initTransitionMetrics(reg)
	s.initSweepMetrics(reg)
	s.initReportMetrics(reg)
	s.initNotifierMetrics(reg)
	return s
}

func (s *PrometheusSink) initTransitionMetrics(reg prometheus.Registerer) {
	s.transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_transitions_total",
		Help: "Total number of transition attempts by outcome.",
	}, []string{"outcome"})

	s.register(reg, s.transitionsTotal, "pitchside_transitions_total")
}

func (s *PrometheusSink) initSweepMetrics(reg prometheus.Registerer) {
	s.sweepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_sweeps_total",
		Help: "Total number of sweep runs per kind.",
	}, []string{"kind"})
	s.sweepErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_sweep_errors_total",
		Help: "Total number of sweep runs that failed to list candidates.",
	}, []string{"kind"})
	s.sweepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pitchside_sweep_duration_seconds",
		Help:    "Duration of each sweep run in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})
	s.sweepTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_sweep_transitions_total",
		Help: "Total number of events transitioned by sweeps.",
	}, []string{"kind"})
	s.sweepSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_sweep_skips_total",
		Help: "Total number of sweep candidates skipped (raced or failed).",
	}, []string{"kind"})

	s.register(reg, s.sweepsTotal, "pitchside_sweeps_total")
	s.register(reg, s.sweepErrorsTotal, "pitchside_sweep_errors_total")
	s.register(reg, s.sweepDuration, "pitchside_sweep_duration_seconds")
	s.register(reg, s.sweepTransitions, "pitchside_sweep_transitions_total")
	s.register(reg, s.sweepSkips, "pitchside_sweep_skips_total")
}

func (s *PrometheusSink) initReportMetrics(reg prometheus.Registerer) {
	s.reportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitchside_report_duration_seconds",
		Help:    "Duration of status-by-day report builds in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
	s.reportDays = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitchside_report_window_days",
		Help:    "Size of requested report windows in days.",
		Buckets: []float64{1, 7, 14, 30, 90, 180, 365},
	})
	s.reportCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitchside_report_candidates",
		Help:    "Number of candidate events scanned per report.",
		Buckets: []float64{10, 100, 1000, 10000, 100000},
	})

	s.register(reg, s.reportDuration, "pitchside_report_duration_seconds")
	s.register(reg, s.reportDays, "pitchside_report_window_days")
	s.register(reg, s.reportCandidates, "pitchside_report_candidates")
}

func (s *PrometheusSink) initNotifierMetrics(reg prometheus.Registerer) {
	s.deliveryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_notifier_delivery_attempts_total",
		Help: "Total number of webhook delivery attempts.",
	}, []string{"attempt", "status_class"})
	s.deliveryOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pitchside_notifier_delivery_outcomes_total",
		Help: "Total number of final delivery outcomes per transition event.",
	}, []string{"outcome"})
	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitchside_notifier_webhook_duration_seconds",
		Help:    "Webhook request latency in seconds (excludes backoff wait).",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pitchside_notifier_buffer_size",
		Help: "Current number of transition events in the notifier buffer.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pitchside_notifier_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.deliveryAttemptsTotal, "pitchside_notifier_delivery_attempts_total")
	s.register(reg, s.deliveryOutcomesTotal, "pitchside_notifier_delivery_outcomes_total")
	s.register(reg, s.webhookDuration, "pitchside_notifier_webhook_duration_seconds")
	s.register(reg, s.bufferSize, "pitchside_notifier_buffer_size")
	s.register(reg, s.emitErrorsTotal, "pitchside_notifier_emit_errors_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Transition metrics implementation

func (s *PrometheusSink) TransitionOutcome(outcome string) {
	s.transitionsTotal.WithLabelValues(outcome).Inc()
}

// Sweep metrics implementation

func (s *PrometheusSink) SweepStarted(kind string) {
	s.sweepsTotal.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) SweepCompleted(kind string, duration time.Duration, transitioned, skipped int, err error) {
	s.sweepDuration.WithLabelValues(kind).Observe(duration.Seconds())
	s.sweepTransitions.WithLabelValues(kind).Add(float64(transitioned))
	s.sweepSkips.WithLabelValues(kind).Add(float64(skipped))
	if err != nil {
		s.sweepErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// Report metrics implementation

func (s *PrometheusSink) ReportCompleted(duration time.Duration, days, candidates int) {
	s.reportDuration.Observe(duration.Seconds())
	s.reportDays.Observe(float64(days))
	s.reportCandidates.Observe(float64(candidates))
}

// Notifier metrics implementation

func (s *PrometheusSink) DeliveryAttemptCompleted(attempt int, statusClass string, duration time.Duration) {
	s.deliveryAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), statusClass).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) DeliveryOutcome(outcome string) {
	s.deliveryOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}
