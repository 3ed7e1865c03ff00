// Package breaker implements a per-endpoint circuit breaker used to guard
// translator and shared-engine calls against cascading failures.
package breaker

import (
	"sync"
	"time"
)

// States.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// Config holds the parameters for a Breaker.
type Config struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxAttempts int
}

// Breaker is a simple closed/open/half-open circuit breaker.
type Breaker struct {
	mu              sync.Mutex
	state           string
	failures        int
	successes       int
	lastFailureTime time.Time
	config          Config
}

// New creates a Breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.HalfOpenMaxAttempts <= 0 {
		cfg.HalfOpenMaxAttempts = 1
	}
	return &Breaker{
		state:  StateClosed,
		config: cfg,
	}
}

// Allow returns true if a call should be attempted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.lastFailureTime) > b.config.ResetTimeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.config.HalfOpenMaxAttempts {
			b.state = StateClosed
		}
		return
	}
	b.state = StateClosed
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		return
	}

	if b.failures >= b.config.FailureThreshold {
		b.state = StateOpen
	}
}

// State returns the current state.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
