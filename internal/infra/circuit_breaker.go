package infra

import (
	"errors"
	"sync"
	"time"

	"warehouse/internal/config"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Circuit Breaker (Closed → Open → Half-Open) guarding the SMTP relay.
//
// States:
//   - Closed:    normal operation, requests pass through
//   - Open:      all requests fail immediately (fast-fail)
//   - Half-Open: one probe request allowed through to test recovery

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed   CBState = iota // requests flow
	CBOpen                    // fast-fail every request
	CBHalfOpen                // probing
)

// String returns a human-readable state name (for health endpoints / logs).
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Execute is called while the CB is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunable parameters.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening (default: 5)
	SuccessThreshold int           // half-open successes needed to close (default: 2)
	OpenTimeout      time.Duration // time spent open before probing (default: 60s)
}

// DefaultCBConfig returns the defaults used for the SMTP breaker.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

// CircuitBreaker implements the pattern with thread-safe state transitions.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CBState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	lastError        string
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	now              func() time.Time
}

// NewCircuitBreaker creates a CB in Closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		state:            CBClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		openTimeout:      cfg.OpenTimeout,
		now:              time.Now,
	}
}

// State returns the current CB state (safe for concurrent reads).
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	// Auto-transition open → half-open if timeout elapsed
	if cb.state == CBOpen && cb.now().Sub(cb.lastFailureTime) >= cb.openTimeout {
		cb.state = CBHalfOpen
		cb.successCount = 0
	}
	return cb.state
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen immediately if the CB is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	state := cb.State()

	if state == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure(err)
		return err
	}
	cb.onSuccess()
	return nil
}

// onFailure records a failure (must be called under lock).
func (cb *CircuitBreaker) onFailure(err error) {
	cb.failureCount++
	cb.lastFailureTime = cb.now()
	cb.lastError = err.Error()

	switch cb.state {
	case CBClosed:
		if cb.failureCount >= cb.failureThreshold {
			cb.state = CBOpen
			cb.successCount = 0
		}
	case CBHalfOpen:
		// Probe failed, back to open
		cb.state = CBOpen
		cb.failureCount = 0
	}
}

// onSuccess records a success (must be called under lock).
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case CBClosed:
		cb.failureCount = 0
	case CBHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CBClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

// BreakerStatus is the breaker snapshot served by /health.
type BreakerStatus struct {
	State     string     `json:"state"`
	Failures  int        `json:"consecutive_failures"`
	LastError string     `json:"last_error,omitempty"`
	RetryAt   *time.Time `json:"retry_at,omitempty"` // set while open
}

// Status reports the state, the consecutive failure count and, while open,
// when the relay will be probed again.
func (cb *CircuitBreaker) Status() BreakerStatus {
	state := cb.State()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := BreakerStatus{State: state.String(), Failures: cb.failureCount}
	if state != CBClosed {
		st.LastError = cb.lastError
	}
	if state == CBOpen {
		retry := cb.lastFailureTime.Add(cb.openTimeout).UTC()
		st.RetryAt = &retry
	}
	return st
}

// BreakerConfigFrom reads the SMTP breaker thresholds from the environment
// config; zero values fall back to DefaultCBConfig.
func BreakerConfigFrom(cfg *config.Config) CircuitBreakerConfig {
	cb := DefaultCBConfig()
	if cfg == nil {
		return cb
	}
	if cfg.SMTPBreakerFailures > 0 {
		cb.FailureThreshold = cfg.SMTPBreakerFailures
	}
	if cfg.SMTPBreakerOpenTimeout > 0 {
		cb.OpenTimeout = cfg.SMTPBreakerOpenTimeout
	}
	return cb
}
