package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	return sink, reg
}

func getCounterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func getGaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func getCounterVecValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if matchLabels(m.GetLabel(), labels) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func TestPrometheusSink_TransitionOutcome(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.TransitionOutcome("success")
	sink.TransitionOutcome("success")
	sink.TransitionOutcome("conflict")

	if got := getCounterVecValue(t, reg, "pitchside_transitions_total", map[string]string{"outcome": "success"}); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := getCounterVecValue(t, reg, "pitchside_transitions_total", map[string]string{"outcome": "conflict"}); got != 1 {
		t.Errorf("conflict count = %v, want 1", got)
	}
}

func TestPrometheusSink_SweepMetrics(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.SweepStarted("completion")
	sink.SweepCompleted("completion", 150*time.Millisecond, 3, 1, nil)
	sink.SweepStarted("auto_reject")
	sink.SweepCompleted("auto_reject", 20*time.Millisecond, 0, 0, errors.New("list failed"))

	if got := getCounterVecValue(t, reg, "pitchside_sweeps_total", map[string]string{"kind": "completion"}); got != 1 {
		t.Errorf("completion sweeps = %v, want 1", got)
	}
	if got := getCounterVecValue(t, reg, "pitchside_sweep_transitions_total", map[string]string{"kind": "completion"}); got != 3 {
		t.Errorf("completion transitions = %v, want 3", got)
	}
	if got := getCounterVecValue(t, reg, "pitchside_sweep_skips_total", map[string]string{"kind": "completion"}); got != 1 {
		t.Errorf("completion skips = %v, want 1", got)
	}
	if got := getCounterVecValue(t, reg, "pitchside_sweep_errors_total", map[string]string{"kind": "auto_reject"}); got != 1 {
		t.Errorf("auto_reject errors = %v, want 1", got)
	}
}

func TestPrometheusSink_NotifierMetrics(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.DeliveryAttemptCompleted(1, StatusClass2xx, 200*time.Millisecond)
	sink.DeliveryOutcome(OutcomeSuccess)
	sink.BufferSizeUpdate(42)
	sink.EmitError()

	if got := getCounterVecValue(t, reg, "pitchside_notifier_delivery_attempts_total",
		map[string]string{"attempt": "1", "status_class": "2xx"}); got != 1 {
		t.Errorf("delivery attempts = %v, want 1", got)
	}
	if got := getGaugeValue(t, reg, "pitchside_notifier_buffer_size"); got != 42 {
		t.Errorf("buffer size = %v, want 42", got)
	}
	if got := getCounterValue(t, reg, "pitchside_notifier_emit_errors_total"); got != 1 {
		t.Errorf("emit errors = %v, want 1", got)
	}
}

func TestPrometheusSink_DoubleRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusSink(reg)
	// Second sink on the same registry logs registration errors but must
	// still be usable.
	sink := NewPrometheusSink(reg)
	sink.TransitionOutcome("success")
	sink.EmitError()
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       string
	}{
		{"200 ok", 200, nil, StatusClass2xx},
		{"201 created", 201, nil, StatusClass2xx},
		{"404", 404, nil, StatusClass4xx},
		{"500", 500, nil, StatusClass5xx},
		{"weird code", 100, nil, StatusClassOtherError},
		{"timeout", 0, errors.New("context deadline exceeded"), StatusClassTimeout},
		{"client timeout", 0, errors.New("Client.Timeout exceeded"), StatusClassTimeout},
		{"refused", 0, errors.New("dial tcp 127.0.0.1:80: connection refused"), StatusClassConnectionError},
		{"dns", 0, errors.New("no such host"), StatusClassConnectionError},
		{"other", 0, errors.New("tls handshake failure"), StatusClassOtherError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.statusCode, tt.err); got != tt.want {
				t.Errorf("ClassifyStatus(%d, %v) = %s, want %s", tt.statusCode, tt.err, got, tt.want)
			}
		})
	}
}
