// Package monitor runs a watch session: it captures the selected target,
// recognizes text on each frame, tracks stability and acts on the result.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/confirmscout/internal/activity"
	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/input"
	"github.com/GriffinCanCode/confirmscout/internal/notify"
	"github.com/GriffinCanCode/confirmscout/internal/recognize"
	"github.com/GriffinCanCode/confirmscout/internal/resilience"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/scroll"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
	"github.com/GriffinCanCode/confirmscout/internal/target"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// Config holds the session settings.
type Config struct {
	FPS           int
	HashDistance  int
	MoveCursor    bool
	ClickCooldown time.Duration
	Tracker       stability.Config
	Scroll        scroll.Config
}

// Deps are the backends a Manager drives.
type Deps struct {
	Capturer   screen.Capturer
	Recognizer recognize.Recognizer
	Mouse      input.Mouse
	Locator    target.Locator
	Beeper     notify.Beeper // nil disables the cue
}

// Manager coordinates capture, recognition, tracking and actions.
type Manager struct {
	tracker  *stability.Tracker
	source   *screen.Source
	rec      recognize.Recognizer
	ctrl     *input.Controller
	locator  target.Locator
	beeper   notify.Beeper
	activity *activity.Log
	events   chan Event
	dropped  atomic.Uint64
	frames   atomic.Uint64

	mu         sync.RWMutex
	cfg        Config
	target     target.Target
	monitoring bool
	cancel     context.CancelFunc
	done       chan struct{}
	detection  *Detection
	region     screen.Region
	search     *scroll.Search
	searchDone chan struct{}
}

// New creates an idle manager.
func New(deps Deps, cfg Config) *Manager {
	beeper := deps.Beeper
	if beeper == nil {
		beeper = notify.Nop{}
	}
	return &Manager{
		tracker:  stability.New(cfg.Tracker),
		source:   screen.NewSource(deps.Capturer),
		rec:      deps.Recognizer,
		ctrl:     input.NewController(deps.Mouse, cfg.ClickCooldown),
		locator:  deps.Locator,
		beeper:   beeper,
		activity: activity.New(ActivityCapacity, activity.DefaultEventBuffer),
		events:   make(chan Event, EventBuffer),
		cfg:      cfg,
	}
}

// Windows lists the targets that can be selected.
func (m *Manager) Windows() ([]target.Target, error) {
	return m.locator.List()
}

// SelectTarget validates t and makes it the watched target. The target cannot
// change while monitoring.
func (m *Manager) SelectTarget(t target.Target) error {
	if err := target.Validate(m.locator, t); err != nil {
		m.activity.Warnf("Cannot select %s: %s", t, apperrors.MessageOf(err))
		return err
	}

	m.mu.Lock()
	if m.monitoring {
		m.mu.Unlock()
		return apperrors.New(apperrors.Busy, "stop monitoring before changing target")
	}
	m.target = t
	m.mu.Unlock()

	m.activity.Infof("Selected %s", t)
	m.publishStatus()
	return nil
}

// Target returns the selected target.
func (m *Manager) Target() target.Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

// Start begins monitoring the selected target. ctx bounds the whole session,
// not the call.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.monitoring {
		m.mu.Unlock()
		return apperrors.New(apperrors.Busy, "already monitoring")
	}
	t := m.target
	if err := target.Validate(m.locator, t); err != nil {
		m.mu.Unlock()
		m.activity.Warnf("Cannot start: %s", apperrors.MessageOf(err))
		return err
	}

	m.tracker.Clear()
	m.detection = nil
	sess := &session{change: screen.NewChangeDetector(m.cfg.HashDistance)}

	frames, err := m.source.Start(ctx, target.RegionOf(m.locator, t), m.cfg.FPS)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done, m.monitoring = cancel, done, true
	m.mu.Unlock()

	go m.process(loopCtx, sess, frames, done)

	trace.Logger(ctx).Info("monitoring started", "target", t.String())
	m.activity.Infof("Monitoring %s", t)
	m.publishStatus()
	return nil
}

// Stop ends monitoring, cancels any scroll search and forgets all detections.
// Safe to call when idle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.monitoring, m.cancel, m.done = false, nil, nil
	search := m.search
	m.mu.Unlock()

	if search != nil {
		search.Cancel()
	}
	m.source.Stop()
	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		trace.Logger(context.Background()).Warn("frame loop did not exit in time")
	}

	m.mu.Lock()
	m.detection = nil
	m.mu.Unlock()
	m.tracker.Clear()

	m.activity.Infof("Monitoring stopped")
	m.publishStatus()
}

// Monitoring reports whether a session is active.
func (m *Manager) Monitoring() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.monitoring
}

// Reconfigure applies new settings. Tracker thresholds, the click cooldown,
// cursor movement and scroll bounds take effect immediately; capture rate and
// hash distance on the next Start.
func (m *Manager) Reconfigure(cfg Config) {
	m.tracker.Reconfigure(cfg.Tracker)
	m.ctrl.SetCooldown(cfg.ClickCooldown)

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Activity returns the activity log.
func (m *Manager) Activity() *activity.Log {
	return m.activity
}

// Close stops monitoring and releases the audio device.
func (m *Manager) Close() error {
	m.Stop()
	return m.beeper.Close()
}

// Status is a point-in-time view of the session.
type Status struct {
	Monitoring    bool              `json:"monitoring"`
	Capturing     bool              `json:"capturing"`
	Target        target.Target     `json:"target"`
	Detection     *Detection        `json:"detection,omitempty"`
	Tracked       []stability.Entry `json:"tracked"`
	Frames        uint64            `json:"frames"`
	FramesDropped uint64            `json:"frames_dropped"`
	EventsDropped uint64            `json:"events_dropped"`
	Scroll        string            `json:"scroll"`
	ScrollSteps   int               `json:"scroll_steps"`
	CooldownMS    int64             `json:"cooldown_ms"`
	Breaker       string            `json:"breaker,omitempty"`
}

type breakered interface {
	Breaker() *resilience.Breaker
}

// Status returns the current session state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	st := Status{
		Monitoring: m.monitoring,
		Target:     m.target,
		Scroll:     scroll.Idle.String(),
	}
	if m.detection != nil {
		d := *m.detection
		st.Detection = &d
	}
	if m.search != nil {
		st.Scroll = m.search.State().String()
		st.ScrollSteps = m.search.Steps()
	}
	m.mu.RUnlock()

	// The last stable event outlives its tracker entry; Click still reports
	// it as NotStable, but the view only shows what is clickable now.
	if st.Detection != nil {
		if _, ok := m.tracker.Stable(st.Detection.Text); !ok {
			st.Detection = nil
		}
	}
	st.Capturing = m.source.Running()
	st.Tracked = m.tracker.Snapshot()
	st.Frames = m.frames.Load()
	st.FramesDropped = m.source.Dropped()
	st.EventsDropped = m.dropped.Load()
	st.CooldownMS = m.ctrl.CooldownRemaining().Milliseconds()
	if b, ok := m.rec.(breakered); ok {
		st.Breaker = b.Breaker().State().String()
	}
	return st
}

func (m *Manager) publishStatus() {
	st := m.Status()
	m.publish(Event{Type: EventStatus, Status: &st})
}
