// Package resilience provides the retry-with-backoff and circuit-breaker
// primitives spec §5/§7 require of ObservationClient, trimmed from the
// teacher's production implementation (resilience/circuit_breaker.go) to
// the behavior this pipeline actually exercises: a consecutive-failure
// count, an open/half-open/closed state machine, and one probe at a time
// during recovery.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aviantrail/tripplanner/internal/core"
)

// CircuitState is the breaker's current posture.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
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

// Config configures a CircuitBreaker. Defaults mirror spec §7: threshold
// of 5 consecutive failures opens the breaker for 60s, with a single
// half-open probe.
type Config struct {
	Name             string
	ConsecutiveFailuresThreshold int
	SleepWindow      time.Duration
	Logger           core.Logger
}

// DefaultConfig returns spec §7's defaults.
func DefaultConfig(name string) *Config {
	return &Config{
		Name:                         name,
		ConsecutiveFailuresThreshold: 5,
		SleepWindow:                  60 * time.Second,
		Logger:                       core.NoOpLogger{},
	}
}

// CircuitBreaker implements spec §7's "threshold 5 consecutive failures
// opens for 60s; half-open probe permits one call" policy.
type CircuitBreaker struct {
	config *Config

	mu             sync.Mutex
	state          CircuitState
	stateChangedAt time.Time
	consecutiveFailures int
	halfOpenInFlight    bool
}

// New creates a circuit breaker with the given config; nil uses defaults
// for an unnamed breaker.
func New(config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig("default")
	}
	if config.Logger == nil {
		config.Logger = core.NoOpLogger{}
	}
	if config.ConsecutiveFailuresThreshold <= 0 {
		config.ConsecutiveFailuresThreshold = 5
	}
	if config.SleepWindow <= 0 {
		config.SleepWindow = 60 * time.Second
	}
	return &CircuitBreaker{
		config:         config,
		state:          StateClosed,
		stateChangedAt: time.Now(),
	}
}

// Execute runs fn under breaker protection. Returns core.ErrCircuitOpen
// without calling fn if the breaker is open and no probe slot is free.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	allowed, isProbe := cb.startExecution()
	if !allowed {
		return fmt.Errorf("circuit breaker %q is open: %w", cb.config.Name, core.ErrCircuitOpen)
	}

	err := fn(ctx)
	cb.completeExecution(isProbe, err)
	return err
}

func (cb *CircuitBreaker) startExecution() (allowed bool, isProbe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true, false
	case StateOpen:
		if time.Since(cb.stateChangedAt) < cb.config.SleepWindow {
			return false, false
		}
		cb.transitionTo(StateHalfOpen)
		cb.halfOpenInFlight = true
		return true, true
	case StateHalfOpen:
		if cb.halfOpenInFlight {
			return false, false
		}
		cb.halfOpenInFlight = true
		return true, true
	default:
		return false, false
	}
}

func (cb *CircuitBreaker) completeExecution(isProbe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if isProbe {
		cb.halfOpenInFlight = false
	}

	if err == nil {
		cb.consecutiveFailures = 0
		if cb.state == StateHalfOpen {
			cb.transitionTo(StateClosed)
		}
		return
	}

	cb.consecutiveFailures++
	if cb.state == StateHalfOpen {
		cb.transitionTo(StateOpen)
		return
	}
	if cb.consecutiveFailures >= cb.config.ConsecutiveFailuresThreshold {
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	oldState := cb.state
	if oldState == newState {
		return
	}
	cb.state = newState
	cb.stateChangedAt = time.Now()
	if newState == StateClosed {
		cb.consecutiveFailures = 0
	}
	cb.config.Logger.Info("circuit breaker state changed", map[string]interface{}{
		"name": cb.config.Name,
		"from": oldState.String(),
		"to":   newState.String(),
	})
}

// State returns the current state for observability/tests.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
