package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	// StateClosed - requests flow normally
	StateClosed CircuitState = iota
	// StateOpen - requests fail immediately
	StateOpen
	// StateHalfOpen - a limited number of probe requests are admitted
	StateHalfOpen
)

func (s CircuitState) String() string {
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

var (
	// ErrCircuitOpen is returned when the circuit rejects a call outright
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe budget is spent
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// BreakerConfig configures circuit breaker behavior
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	Timeout     time.Duration // how long to stay open before probing
	MaxProbes   uint32        // probe requests admitted while half-open
}

// DefaultBreakerConfig returns the defaults used for gateway guards
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxProbes:   1,
	}
}

// CircuitBreaker trips open after a run of consecutive failures, rejects
// calls while open, and admits probe calls after the cool-down. A successful
// probe closes the circuit; a failed probe reopens it.
type CircuitBreaker struct {
	mu         sync.RWMutex
	state      CircuitState
	failures   uint32
	probes     uint32
	lastChange time.Time
	config     BreakerConfig
}

// NewCircuitBreaker creates a circuit breaker in the closed state
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:      StateClosed,
		lastChange: time.Now(),
		config:     config,
	}
}

// Call executes fn if the circuit admits it and feeds the outcome back into
// the breaker. The fn error is returned unchanged.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

// Ready reports whether a call would currently be admitted, without
// reserving a probe slot. Used by availability checks that must not consume
// the half-open budget.
func (cb *CircuitBreaker) Ready() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		return time.Since(cb.lastChange) > cb.config.Timeout
	case StateHalfOpen:
		return cb.probes < cb.config.MaxProbes
	default:
		return false
	}
}

// admit decides whether the call may proceed, reserving a probe slot when
// the circuit is half-open
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastChange) > cb.config.Timeout {
			cb.setState(StateHalfOpen)
			cb.probes++
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if cb.probes >= cb.config.MaxProbes {
			return ErrTooManyRequests
		}
		cb.probes++
		return nil

	default:
		return ErrCircuitOpen
	}
}

// record feeds a call outcome back into the state machine
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.config.MaxFailures {
				cb.setState(StateOpen)
			}
		case StateHalfOpen:
			// A failed probe reopens the circuit
			cb.setState(StateOpen)
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.setState(StateClosed)
	case StateClosed:
		cb.failures = 0
	}
}

// setState transitions to a new state and resets per-state counters.
// Callers must hold cb.mu.
func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}

	cb.state = newState
	cb.lastChange = time.Now()
	cb.probes = 0
	if newState != StateOpen {
		cb.failures = 0
	}
}

// State returns the current circuit state (thread-safe)
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count (thread-safe)
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset returns the circuit breaker to the closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.lastChange = time.Now()
}
