package monitor

import (
	"context"
	"image"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/scroll"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// Click presses the current detection. It is refused, never retried, when
// the session is not monitoring, the target lacks focus, nothing has been
// detected, the detection is no longer stable or the cooldown is active.
func (m *Manager) Click(ctx context.Context) (Detection, error) {
	det, err := m.click(ctx)
	if err != nil {
		if apperrors.IsActionBlocked(err) {
			m.activity.Warnf("Click blocked: %s", apperrors.MessageOf(err))
		} else {
			m.activity.Warnf("Click failed: %s", apperrors.MessageOf(err))
		}
		trace.Logger(ctx).Info("click refused", "code", apperrors.CodeOf(err).String(), "error", err)
		return Detection{}, err
	}
	m.activity.Actionf("Clicked %q at (%d, %d)", det.Text, det.ScreenX, det.ScreenY)
	return det, nil
}

func (m *Manager) click(ctx context.Context) (Detection, error) {
	m.mu.RLock()
	monitoring, t, current, region := m.monitoring, m.target, m.detection, m.region
	m.mu.RUnlock()

	if !monitoring {
		return Detection{}, apperrors.New(apperrors.NotMonitoring, "not monitoring")
	}
	if !m.locator.Focused(t) {
		return Detection{}, apperrors.Newf(apperrors.TargetNotFocused, "%s is not focused", t)
	}
	if current == nil {
		return Detection{}, apperrors.New(apperrors.NoDetection, "no target detected")
	}
	entry, ok := m.tracker.Stable(current.Text)
	if !ok {
		return Detection{}, apperrors.Newf(apperrors.NotStable, "%q is no longer stable", current.Text)
	}

	// The latest box and region, not the ones at the moment it turned stable.
	cx, cy := entry.Box.Center()
	p := region.ToScreen(cx, cy)
	if err := m.ctrl.ClickAt(ctx, p); err != nil {
		return Detection{}, err
	}

	det := *current
	det.Text, det.Box, det.Confidence = entry.Text, entry.Box, entry.Confidence
	det.Region, det.ScreenX, det.ScreenY = region, p.X, p.Y
	return det, nil
}

// ScrollSearch starts a background scroll search that ends when a target
// becomes stable, the step budget runs out or it is cancelled. Only one runs
// at a time. ctx bounds the search, not the call.
func (m *Manager) ScrollSearch(ctx context.Context) error {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		m.activity.Warnf("Scroll search blocked: not monitoring")
		return apperrors.New(apperrors.NotMonitoring, "not monitoring")
	}
	if m.search != nil {
		m.mu.Unlock()
		return apperrors.New(apperrors.Busy, "scroll search already running")
	}
	cfg := m.cfg.Scroll
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = scroll.DefaultMaxSteps
	}
	region := m.region
	s := scroll.New(m.ctrl, cfg, scroll.OnStep(m.onScrollStep))
	done := make(chan struct{})
	m.search, m.searchDone = s, done
	m.mu.Unlock()

	// The wheel scrolls whatever is under the cursor.
	if !region.Empty() {
		m.ctrl.MoveTo(image.Pt(region.X+region.Width/2, region.Y+region.Height/2))
	}

	m.activity.Actionf("Scroll search started")
	go m.runSearch(ctx, s, cfg.MaxSteps, done)
	return nil
}

func (m *Manager) runSearch(ctx context.Context, s *scroll.Search, maxSteps int, done chan struct{}) {
	defer close(done)

	ctx, span := trace.StartSpan(ctx, "scroll_search")
	r := s.Run(ctx)
	span.SetAttr("state", r.State.String())
	span.SetAttr("steps", r.Steps)
	span.End()

	m.mu.Lock()
	if m.search == s {
		m.search = nil
	}
	m.mu.Unlock()

	switch r.State {
	case scroll.Found:
		m.activity.Infof("Scroll search found a target after %d steps", r.Steps)
	case scroll.Exhausted:
		m.activity.Warnf("Scroll search gave up after %d steps", r.Steps)
	default:
		m.activity.Infof("Scroll search cancelled after %d steps", r.Steps)
	}
	m.publish(Event{Type: EventScroll, Scroll: &ScrollProgress{State: r.State.String(), Step: r.Steps, Max: maxSteps}})
}

func (m *Manager) onScrollStep(step, maxSteps int) {
	m.publish(Event{Type: EventScroll, Scroll: &ScrollProgress{State: scroll.Stepping.String(), Step: step, Max: maxSteps}})
}

// CancelScroll stops the running scroll search and reports whether one was
// running.
func (m *Manager) CancelScroll() bool {
	m.mu.RLock()
	s := m.search
	m.mu.RUnlock()
	if s == nil {
		return false
	}
	s.Cancel()
	return true
}
