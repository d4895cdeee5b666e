package governance

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without running it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the state of a circuit breaker.
type BreakerState string

const (
	// StateClosed lets every call through.
	StateClosed BreakerState = "closed"
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen BreakerState = "open"
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig defines when an upstream is considered down.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Zero disables the breaker.
	MaxFailures int `yaml:"max_failures"`
	// Cooldown is how long the circuit stays open before probing again.
	Cooldown time.Duration `yaml:"cooldown"`
	// HalfOpenProbes is the number of successful probes needed to close the circuit.
	HalfOpenProbes int `yaml:"half_open_probes"`
}

// DefaultBreakerConfig returns the defaults used for the LLM endpoint.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:    3,
		Cooldown:       30 * time.Second,
		HalfOpenProbes: 1,
	}
}

// Breaker stops calling an upstream after repeated failures so callers can fall
// back immediately instead of waiting through every retry.
type Breaker struct {
	mu       sync.Mutex
	config   BreakerConfig
	state    BreakerState
	failures int
	probes   int
	inFlight int
	until    time.Time
	now      func() time.Time
}

// NewBreaker creates a breaker. A nil *Breaker is valid and never trips.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		return nil
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = 1
	}
	return &Breaker{config: config, state: StateClosed, now: time.Now}
}

// Do runs fn unless the circuit is open. Context cancellation is not counted as a failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b == nil {
		return fn(ctx)
	}
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	if b == nil {
		return StateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && !b.now().Before(b.until) {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Before(b.until) {
			return ErrCircuitOpen
		}
		b.transitionLocked(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.inFlight >= b.config.HalfOpenProbes {
			return ErrCircuitOpen
		}
		b.inFlight++
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.inFlight > 0 {
		b.inFlight--
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	switch b.state {
	case StateClosed:
		if err == nil {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.MaxFailures {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		if err != nil {
			b.transitionLocked(StateOpen)
			return
		}
		b.probes++
		if b.probes >= b.config.HalfOpenProbes {
			b.transitionLocked(StateClosed)
		}
	}
}

func (b *Breaker) transitionLocked(state BreakerState) {
	b.state = state
	b.failures = 0
	b.probes = 0
	b.inFlight = 0
	if state == StateOpen {
		b.until = b.now().Add(b.config.Cooldown)
	}
}
