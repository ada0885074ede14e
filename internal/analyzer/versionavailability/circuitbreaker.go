package versionavailability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// circuitBreakerState mirrors the three-state machine the teacher uses
// to guard outbound LLM calls; here it guards one registry client so a
// consistently failing source fails fast instead of burning its
// per-call timeout on every analysis run.
type circuitBreakerState int

const (
	stateClosed circuitBreakerState = iota
	stateOpen
	stateHalfOpen
)

func (s circuitBreakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// errCircuitOpen is returned by Call while the breaker is open.
var errCircuitOpen = errors.New("versionavailability: circuit breaker is open")

type callResult struct {
	at      time.Time
	success bool
}

// circuitBreaker protects one outbound registry client. Grounded on
// internal/infrastructure/llm/circuit_breaker.go's sliding-window
// failure-rate design, stripped of the LLM-specific slow-call/metrics
// fields this domain doesn't need.
type circuitBreaker struct {
	maxFailures      int
	resetTimeout     time.Duration
	failureThreshold float64
	timeWindow       time.Duration

	mu                  sync.Mutex
	state               circuitBreakerState
	consecutiveFailures int
	lastStateChange     time.Time
	results             []callResult

	logger *slog.Logger
}

func newCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *slog.Logger) *circuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &circuitBreaker{
		maxFailures:      maxFailures,
		resetTimeout:     resetTimeout,
		failureThreshold: 0.5,
		timeWindow:       60 * time.Second,
		state:            stateClosed,
		lastStateChange:  time.Now(),
		logger:           logger,
	}
}

// Call runs op if the breaker allows it, recording the outcome.
func (cb *circuitBreaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := op(ctx)
	cb.after(err == nil)
	return err
}

func (cb *circuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateOpen {
		if time.Since(cb.lastStateChange) >= cb.resetTimeout {
			cb.state = stateHalfOpen
			cb.lastStateChange = time.Now()
			cb.logger.Debug("circuit breaker entering half-open", "reset_timeout", cb.resetTimeout)
			return nil
		}
		return errCircuitOpen
	}
	return nil
}

func (cb *circuitBreaker) after(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.results = append(cb.results, callResult{at: now, success: success})
	cb.pruneLocked(now)

	if success {
		cb.consecutiveFailures = 0
		if cb.state == stateHalfOpen {
			cb.state = stateClosed
			cb.lastStateChange = now
			cb.results = nil
		}
		return
	}

	cb.consecutiveFailures++
	if cb.state == stateHalfOpen {
		cb.openLocked(now)
		return
	}
	if cb.shouldOpenLocked() {
		cb.openLocked(now)
	}
}

func (cb *circuitBreaker) shouldOpenLocked() bool {
	if cb.consecutiveFailures >= cb.maxFailures {
		return true
	}
	if len(cb.results) < cb.maxFailures {
		return false
	}
	failures := 0
	for _, r := range cb.results {
		if !r.success {
			failures++
		}
	}
	return float64(failures)/float64(len(cb.results)) >= cb.failureThreshold
}

func (cb *circuitBreaker) openLocked(now time.Time) {
	cb.state = stateOpen
	cb.lastStateChange = now
	cb.logger.Warn("circuit breaker opened", "consecutive_failures", cb.consecutiveFailures)
}

func (cb *circuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-cb.timeWindow)
	i := 0
	for ; i < len(cb.results); i++ {
		if cb.results[i].at.After(cutoff) {
			break
		}
	}
	cb.results = cb.results[i:]
}

func (cb *circuitBreaker) State() circuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
