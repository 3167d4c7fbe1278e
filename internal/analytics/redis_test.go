package analytics

import (
	"testing"
	"time"

	"github.com/pitchside/pitchside/internal/domain"
)

func TestBuildKey(t *testing.T) {
	at := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	if got := buildKey(domain.StatusActive, at); got != "transitions:active:20240310" {
		t.Errorf("buildKey = %q", got)
	}

	// Non-UTC timestamps bucket by their UTC day.
	loc := time.FixedZone("UTC+3", 3*60*60)
	late := time.Date(2024, 3, 11, 1, 30, 0, 0, loc)
	if got := buildKey(domain.StatusRejected, late); got != "transitions:rejected:20240310" {
		t.Errorf("buildKey = %q", got)
	}
}
