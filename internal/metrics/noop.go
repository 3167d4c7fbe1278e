package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) TransitionOutcome(outcome string)                                               {}
func (n *NoopSink) SweepStarted(kind string)                                                       {}
func (n *NoopSink) SweepCompleted(kind string, d time.Duration, transitioned, skipped int, _ error) {}
func (n *NoopSink) ReportCompleted(d time.Duration, days, candidates int)                          {}
func (n *NoopSink) DeliveryAttemptCompleted(attempt int, statusClass string, d time.Duration)      {}
func (n *NoopSink) DeliveryOutcome(outcome string)                                                 {}
func (n *NoopSink) BufferSizeUpdate(size int)                                                      {}
func (n *NoopSink) EmitError()                                                                     {}

var _ Sink = (*NoopSink)(nil)
var _ Sink = (*PrometheusSink)(nil)
