package monitor

import (
	"context"

	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// session is the frame loop's private state.
type session struct {
	change  *screen.ChangeDetector
	lastObs []stability.Observation
}

// process consumes frames serially until the source closes or ctx ends.
func (m *Manager) process(ctx context.Context, sess *session, frames <-chan screen.Frame, done chan struct{}) {
	defer close(done)
	defer m.release(done)

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			m.handleFrame(ctx, sess, f)
		}
	}
}

// release marks the session over when the loop ends without Stop.
func (m *Manager) release(done chan struct{}) {
	m.mu.Lock()
	ended := m.done == done
	if ended {
		m.cancel()
		m.monitoring, m.cancel, m.done = false, nil, nil
		m.detection = nil
	}
	m.mu.Unlock()

	if ended {
		m.tracker.Clear()
		m.activity.Warnf("Monitoring ended")
		m.publishStatus()
	}
}

func (m *Manager) handleFrame(ctx context.Context, sess *session, f screen.Frame) {
	ctx, span := trace.StartSpan(ctx, "process_frame")
	defer span.End()
	span.SetAttr("seq", f.Seq)
	log := trace.Logger(ctx)

	// An unchanged frame repeats the previous reading so stable targets keep
	// their consecutive-frame count without another recognizer call.
	if sess.change.Changed(f) {
		obs, err := m.rec.Recognize(ctx, f)
		if err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("recognize failed, treating frame as empty", "seq", f.Seq, "error", err)
			obs = nil
			sess.change.Reset()
		}
		sess.lastObs = obs
	} else {
		span.SetAttr("reused", true)
	}

	obs := restamp(sess.lastObs, f)
	span.SetAttr("observations", len(obs))
	events := m.tracker.Ingest(obs)
	m.frames.Add(1)

	m.mu.Lock()
	m.region = f.Region
	m.mu.Unlock()

	for _, ev := range events {
		m.onStable(ctx, f.Region, ev)
	}
}

// restamp copies obs with the frame's capture time.
func restamp(obs []stability.Observation, f screen.Frame) []stability.Observation {
	if len(obs) == 0 {
		return nil
	}
	out := make([]stability.Observation, len(obs))
	for i, o := range obs {
		o.ObservedAt = f.CapturedAt
		out[i] = o
	}
	return out
}

func (m *Manager) onStable(ctx context.Context, region screen.Region, ev stability.StableEvent) {
	cx, cy := ev.Box.Center()
	p := region.ToScreen(cx, cy)
	det := &Detection{StableEvent: ev, Region: region, ScreenX: p.X, ScreenY: p.Y}

	m.mu.Lock()
	m.detection = det
	search := m.search
	moveCursor := m.cfg.MoveCursor
	m.mu.Unlock()

	trace.Logger(ctx).Info("target stable", "text", ev.Text, "x", p.X, "y", p.Y, "confidence", ev.Confidence)
	m.activity.Actionf("Found %q at (%d, %d), confidence %.2f", ev.Text, p.X, p.Y, ev.Confidence)
	m.beeper.Beep()
	if moveCursor {
		m.ctrl.MoveTo(p)
	}
	if search != nil {
		search.Found()
	}

	d := *det
	m.publish(Event{Type: EventStable, Detection: &d})
}
