// Package resilience provides the circuit breaker and retry helpers used
// around the recognizer.
package resilience

import (
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker is failing fast.
var ErrOpen = apperrors.New(apperrors.Unavailable, "circuit breaker open")

// Config holds breaker settings.
type Config struct {
	Threshold         int           `mapstructure:"threshold"`          // consecutive failures before opening
	Cooldown          time.Duration `mapstructure:"cooldown"`           // wait before a half-open probe
	HalfOpenSuccesses int           `mapstructure:"half_open_successes"` // probes needed to close
}

// DefaultConfig returns the recognizer defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		Cooldown:          DefaultCooldown,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}

// Breaker is a consecutive-failure circuit breaker. In half-open state only one
// probe is let through at a time.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
	onChange  func(from, to State)
}

// NewBreaker creates a closed breaker. name only appears in logs.
func NewBreaker(name string, cfg Config) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
}

// OnStateChange registers a transition hook; it runs under the breaker lock
// and must not call back into the breaker.
func (b *Breaker) OnStateChange(fn func(from, to State)) *Breaker {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
	return b
}

// Allow reports whether a call may proceed. Every nil return must be paired
// with Success or Failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.setState(HalfOpen)
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probing = false
		b.successes++
		if b.successes >= b.cfg.HalfOpenSuccesses {
			b.setState(Closed)
		}
	case Closed:
		b.failures = 0
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probing = false
		b.setState(Open)
	case Closed:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.setState(Open)
		}
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.setState(Closed)
	b.mu.Unlock()
}

func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	switch to {
	case Open:
		b.openedAt = b.now()
		slog.Warn("circuit breaker opened", "breaker", b.name, "failures", b.failures)
	case Closed:
		b.failures = 0
		b.probing = false
		slog.Info("circuit breaker closed", "breaker", b.name)
	case HalfOpen:
		slog.Info("circuit breaker half-open", "breaker", b.name)
	}
	if b.onChange != nil {
		b.onChange(from, to)
	}
}

// Do runs fn under the breaker.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	v, err := fn()
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return v, nil
}
