// Package scroll implements the bounded scroll-search: scroll a step, let the
// pipeline look at the new content, stop when a target becomes stable.
package scroll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State of a search.
type State int

const (
	Idle State = iota
	Stepping
	Found
	Exhausted
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Scroller performs one scroll step.
type Scroller interface {
	ScrollStep(ctx context.Context) error
}

// Config bounds a search.
type Config struct {
	MaxSteps int           `mapstructure:"max_steps"`
	Settle   time.Duration `mapstructure:"settle"`
}

// DefaultConfig returns 30 steps with a 500ms settle.
func DefaultConfig() Config {
	return Config{MaxSteps: DefaultMaxSteps, Settle: DefaultSettle}
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	return c
}

// Result is the outcome of Run.
type Result struct {
	State State
	Steps int
}

// Search is a single-use scroll search. Found and Cancel may be called from
// any goroutine; both are latched, so a signal sent before Run is honoured.
type Search struct {
	cfg      Config
	scroller Scroller
	onStep   func(step, max int)

	found      chan struct{}
	cancel     chan struct{}
	cancelOnce sync.Once
	foundOnce  sync.Once

	mu    sync.Mutex
	state State
	steps int
}

// Option configures a Search.
type Option func(*Search)

// OnStep registers a progress callback invoked after each step.
func OnStep(fn func(step, max int)) Option {
	return func(s *Search) { s.onStep = fn }
}

// New creates an idle search.
func New(sc Scroller, cfg Config, opts ...Option) *Search {
	s := &Search{
		cfg:      cfg.withDefaults(),
		scroller: sc,
		found:    make(chan struct{}),
		cancel:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run steps until a target is found, the step budget is spent, or the search
// is cancelled (Cancel or ctx). Cancellation is checked before each step and
// interrupts the settle wait. Run may only be called once.
func (s *Search) Run(ctx context.Context) Result {
	s.mu.Lock()
	if s.state != Idle {
		r := Result{State: s.state, Steps: s.steps}
		s.mu.Unlock()
		return r
	}
	s.state = Stepping
	s.mu.Unlock()

	slog.Info("scroll search started", "max_steps", s.cfg.MaxSteps)

	for s.Steps() < s.cfg.MaxSteps {
		if st, done := s.interrupted(ctx); done {
			return s.finish(st)
		}

		if err := s.scroller.ScrollStep(ctx); err != nil {
			slog.Warn("scroll step failed", "step", s.Steps()+1, "error", err)
		}
		step := s.incr()
		if s.onStep != nil {
			s.onStep(step, s.cfg.MaxSteps)
		}

		timer := time.NewTimer(s.cfg.Settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return s.finish(Cancelled)
		case <-s.cancel:
			timer.Stop()
			return s.finish(Cancelled)
		case <-s.found:
			timer.Stop()
			return s.finish(Found)
		case <-timer.C:
		}
	}

	// A detection that lands during the last settle still counts.
	if st, done := s.interrupted(ctx); done {
		return s.finish(st)
	}
	return s.finish(Exhausted)
}

// interrupted checks the latched signals without blocking. Found wins over
// cancellation when both are set.
func (s *Search) interrupted(ctx context.Context) (State, bool) {
	select {
	case <-s.found:
		return Found, true
	default:
	}
	select {
	case <-s.cancel:
		return Cancelled, true
	case <-ctx.Done():
		return Cancelled, true
	default:
	}
	return Stepping, false
}

func (s *Search) incr() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps++
	return s.steps
}

func (s *Search) finish(st State) Result {
	s.mu.Lock()
	s.state = st
	r := Result{State: st, Steps: s.steps}
	s.mu.Unlock()

	slog.Info("scroll search finished", "state", st.String(), "steps", r.Steps)
	return r
}

// Found signals that a target became stable.
func (s *Search) Found() {
	s.foundOnce.Do(func() { close(s.found) })
}

// Cancel stops the search at the next check.
func (s *Search) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

// State returns the current state.
func (s *Search) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Steps returns the number of steps issued so far.
func (s *Search) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}
