package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a breaker.
type Settings struct {
	// Name identifies the guarded service in logs and metrics.
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit. Default: 5.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a probe. Default: 1m.
	ResetTimeout time.Duration
	// OnStateChange, if set, is called after every transition.
	OnStateChange func(name string, from, to State)
	Logger        *zap.Logger
}

// CircuitBreaker guards one external service. While open, calls fail fast
// with ErrCircuitOpen instead of reaching the service.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	onStateChange func(name string, from, to State)
	logger        *zap.Logger
	now           func() time.Time

	mu              sync.Mutex
	state           State
	failures        int
	probing         bool
	lastFailureTime time.Time
}

// New creates a breaker in the closed state.
func New(s Settings) *CircuitBreaker {
	if s.MaxFailures <= 0 {
		s.MaxFailures = 5
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = time.Minute
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	return &CircuitBreaker{
		name:          s.Name,
		maxFailures:   s.MaxFailures,
		resetTimeout:  s.ResetTimeout,
		onStateChange: s.OnStateChange,
		logger:        s.Logger.With(zap.String("breaker", s.Name)),
		now:           time.Now,
		state:         StateClosed,
	}
}

// Name returns the guarded service name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Call executes fn with circuit breaker protection. Context cancellation by
// the caller is not counted as a service failure.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		cb.release()
		return err
	}
	cb.afterCall(err)

	return err
}

// beforeCall checks if call is allowed
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.probing = true
		return nil

	case StateHalfOpen:
		// one probe at a time
		if cb.probing {
			return ErrTooManyRequests
		}
		cb.probing = true
		return nil
	}

	return nil
}

// afterCall updates circuit breaker state after call
func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false

	if err != nil {
		cb.failures++
		cb.lastFailureTime = cb.now()

		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.maxFailures {
				cb.setState(StateOpen)
			}
		case StateHalfOpen:
			cb.setState(StateOpen)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.logger.Info("circuit state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", cb.failures),
	)
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// State returns current circuit breaker state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
