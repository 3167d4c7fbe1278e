// Package notify fans transition events out to a webhook endpoint. The
// bus decouples the transition executor from delivery: emits never block a
// request, and a full buffer sheds events rather than stalling writes.
package notify

import (
	"context"
	"errors"

	"github.com/pitchside/pitchside/internal/domain"
	"github.com/pitchside/pitchside/internal/transition"
)

// ErrBufferFull is returned by Emit when the bus buffer is saturated.
var ErrBufferFull = errors.New("notify: buffer full, event dropped")

// BusMetrics records bus health. Non-blocking, fire-and-forget.
type BusMetrics interface {
	BufferSizeUpdate(size int)
	EmitError()
}

type Bus struct {
	ch      chan domain.TransitionEvent
	metrics BusMetrics // optional, nil = disabled
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		ch: make(chan domain.TransitionEvent, buffer),
	}
}

// WithMetrics attaches a metrics sink to the bus.
func (b *Bus) WithMetrics(m BusMetrics) *Bus {
	b.metrics = m
	return b
}

// Emit enqueues the event without blocking. Transitions are already
// durable when this runs, so a full buffer drops the notification and
// reports ErrBufferFull instead of stalling the caller.
func (b *Bus) Emit(ctx context.Context, event domain.TransitionEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.ch <- event:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	default:
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ErrBufferFull
	}
}

// Channel exposes the consumer side for the dispatcher.
func (b *Bus) Channel() <-chan domain.TransitionEvent {
	return b.ch
}

var _ transition.Emitter = (*Bus)(nil)
