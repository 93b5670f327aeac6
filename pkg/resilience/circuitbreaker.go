// Package resilience guards calls to remote content hosts: a circuit breaker,
// exponential-backoff retry, and a per-attempt deadline.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of calling through an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenMaxRequests probes through.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	now      func() time.Time
	logger   *slog.Logger
	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		state:  StateClosed,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute calls fn unless the breaker is open. Errors wrapped with Permanent
// are returned but do not count as failures: the host answered.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probes = 0
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait)
		}
		cb.probes = 0
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil || IsPermanent(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.probes = 0
			cb.transition(StateClosed)
		}
		return
	}
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.logger.Info("circuit state changed", "from", from.String(), "to", to.String(), "failures", cb.failures)
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
