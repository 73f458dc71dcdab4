// Package resilience holds the circuit breaker shared by every outbound
// client. A breaker opens after FailureThreshold consecutive failures,
// rejects calls for OpenTimeout, then admits HalfOpenMaxReq probes; that many
// successful probes close it, any failed probe reopens it.
package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc observes transitions. It runs after the breaker lock is released.
type StateChangeFunc func(name string, from, to CircuitState)

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
	OnStateChange    StateChangeFunc
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 15 * time.Second
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = 2
	}
	return c
}

type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int       // consecutive, closed state only
	until    time.Time // open state ends here
	probes   int       // half-open admitted
	passed   int       // half-open succeeded
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, cfg: cfg.withDefaults(), now: time.Now, state: CircuitStateClosed}
}

// NewOptionalCircuitBreaker returns nil when disabled. Every method accepts a
// nil receiver and lets the call through.
func NewOptionalCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return NewCircuitBreaker(name, cfg)
}

func (b *CircuitBreaker) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Execute runs fn when allowed and records its outcome.
func (b *CircuitBreaker) Execute(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil {
		b.RecordFailure()
	} else {
		b.RecordSuccess()
	}
	return err
}

func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	var err error
	b.transition(func() {
		if b.state == CircuitStateOpen && !b.now().Before(b.until) {
			b.enter(CircuitStateHalfOpen)
		}
		switch {
		case b.state == CircuitStateOpen:
			err = ErrCircuitOpen
		case b.state == CircuitStateHalfOpen && b.probes >= b.cfg.HalfOpenMaxReq:
			err = ErrCircuitOpen
		case b.state == CircuitStateHalfOpen:
			b.probes++
		}
	})
	return err
}

func (b *CircuitBreaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.transition(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures = 0
		case CircuitStateHalfOpen:
			b.passed++
			if b.passed >= b.cfg.HalfOpenMaxReq {
				b.enter(CircuitStateClosed)
			}
		}
	})
}

func (b *CircuitBreaker) RecordFailure() {
	if b == nil {
		return
	}
	b.transition(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.enter(CircuitStateOpen)
			}
		case CircuitStateHalfOpen, CircuitStateOpen:
			b.enter(CircuitStateOpen)
		}
	})
}

// State reports half-open once the open window has elapsed, even before the
// next Allow performs the transition.
func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitStateOpen && !b.now().Before(b.until) {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) transition(mutate func()) {
	b.mu.Lock()
	from := b.state
	mutate()
	to := b.state
	b.mu.Unlock()

	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// enter must be called with mu held.
func (b *CircuitBreaker) enter(state CircuitState) {
	b.state = state
	b.failures, b.probes, b.passed = 0, 0, 0
	b.until = time.Time{}
	if state == CircuitStateOpen {
		b.until = b.now().Add(b.cfg.OpenTimeout)
	}
}
