// Package circuitbreaker guards outbound webhook endpoints: an endpoint
// that keeps failing is cut off until a cooldown elapses, then probed with
// a single request before traffic resumes.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type endpointState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
	probing             bool
}

type CircuitBreaker struct {
	mu        sync.Mutex
	endpoints map[string]*endpointState
	threshold int
	cooldown  time.Duration
	clock     func() time.Time
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		endpoints: make(map[string]*endpointState),
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Allow reports whether a request to url may proceed. When the cooldown of
// an open circuit has elapsed, exactly one caller is admitted as a probe;
// everyone else keeps getting ErrCircuitOpen until the probe resolves.
func (cb *CircuitBreaker) Allow(url string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.endpoints[url]
	if !ok {
		return nil
	}

	switch s.state {
	case stateClosed:
		return nil
	case stateOpen:
		if cb.clock().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			s.probing = true
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		if s.probing {
			return ErrCircuitOpen
		}
		s.probing = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the circuit for url.
func (cb *CircuitBreaker) RecordSuccess(url string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.endpoints[url]
	if !ok {
		return
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
	s.probing = false
}

// RecordFailure counts a failure against url. A failed half-open probe
// reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure(url string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.endpoints[url]
	if !ok {
		s = &endpointState{}
		cb.endpoints[url] = s
	}

	s.consecutiveFailures++
	if s.state == stateHalfOpen || s.consecutiveFailures >= cb.threshold {
		s.state = stateOpen
		s.openedAt = cb.clock()
		s.probing = false
	}
}
