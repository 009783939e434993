package monitor

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/scroll"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
	"github.com/GriffinCanCode/confirmscout/internal/target"
)

var region = screen.Region{X: 100, Y: 200, Width: 400, Height: 300}

// Confirm button at frame-local centre (50, 35), screen (150, 235).
var confirm = stability.Observation{
	Text:       "Confirm",
	Box:        stability.Box{X: 10, Y: 20, Width: 80, Height: 30},
	Confidence: 0.9,
}

type mockCapturer struct{}

func (mockCapturer) Capture(r screen.Region) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img, nil
}

func (mockCapturer) Close() error { return nil }

type mockRecognizer struct {
	mu    sync.Mutex
	obs   []stability.Observation
	err   error
	calls int
	fn    func() []stability.Observation
}

func (m *mockRecognizer) Recognize(context.Context, screen.Frame) ([]stability.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fn != nil {
		return m.fn(), nil
	}
	return m.obs, m.err
}

func (m *mockRecognizer) set(obs ...stability.Observation) {
	m.mu.Lock()
	m.obs = obs
	m.mu.Unlock()
}

func (m *mockRecognizer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockMouse struct {
	mu      sync.Mutex
	moves   []image.Point
	clicks  int
	scrolls int
}

func (m *mockMouse) Move(x, y int) {
	m.mu.Lock()
	m.moves = append(m.moves, image.Pt(x, y))
	m.mu.Unlock()
}

func (m *mockMouse) Down() error { return nil }

func (m *mockMouse) Up() error {
	m.mu.Lock()
	m.clicks++
	m.mu.Unlock()
	return nil
}

func (m *mockMouse) ScrollDown(int) error {
	m.mu.Lock()
	m.scrolls++
	m.mu.Unlock()
	return nil
}

func (m *mockMouse) lastMove() image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.moves) == 0 {
		return image.Point{}
	}
	return m.moves[len(m.moves)-1]
}

func (m *mockMouse) clickCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks
}

func (m *mockMouse) scrollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scrolls
}

type unfocused struct{ target.Fixed }

func (unfocused) Focused(target.Target) bool { return false }

type mockBeeper struct{ beeps atomic.Int32 }

func (b *mockBeeper) Beep()        { b.beeps.Add(1) }
func (b *mockBeeper) Close() error { return nil }

type fixture struct {
	m      *Manager
	rec    *mockRecognizer
	mouse  *mockMouse
	beeper *mockBeeper
}

func newFixture(t *testing.T, loc target.Locator, cfg Config) *fixture {
	t.Helper()
	if loc == nil {
		loc = target.Fixed{Region: region}
	}
	if cfg.FPS == 0 {
		cfg.FPS = screen.MaxFPS
	}
	if cfg.HashDistance == 0 {
		cfg.HashDistance = -1
	}
	f := &fixture{rec: &mockRecognizer{}, mouse: &mockMouse{}, beeper: &mockBeeper{}}
	f.m = New(Deps{
		Capturer:   mockCapturer{},
		Recognizer: f.rec,
		Mouse:      f.mouse,
		Locator:    loc,
		Beeper:     f.beeper,
	}, cfg)
	t.Cleanup(f.m.Stop)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.m.SelectTarget(target.FixedTarget); err != nil {
		t.Fatalf("SelectTarget() error = %v", err)
	}
	if err := f.m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitEvent(t *testing.T, m *Manager, typ EventType) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

func (m *Manager) waitScroll() {
	m.mu.RLock()
	done := m.searchDone
	m.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func TestStartRequiresTarget(t *testing.T) {
	f := newFixture(t, nil, Config{})
	err := f.m.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.InvalidTarget) {
		t.Errorf("Start() error = %v, want InvalidTarget", err)
	}
	if f.m.Monitoring() {
		t.Error("should not be monitoring")
	}
}

func TestSelectTargetRejectsUnknown(t *testing.T) {
	f := newFixture(t, nil, Config{})
	err := f.m.SelectTarget(target.Target{PID: 4242, Title: "gone"})
	if !apperrors.IsCode(err, apperrors.InvalidTarget) {
		t.Errorf("SelectTarget() error = %v, want InvalidTarget", err)
	}
	if !f.m.Target().Zero() {
		t.Errorf("Target() = %v, want unset", f.m.Target())
	}
}

func TestStartTwiceIsBusy(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.start(t)
	if err := f.m.Start(context.Background()); !apperrors.IsCode(err, apperrors.Busy) {
		t.Errorf("second Start() error = %v, want Busy", err)
	}
	if err := f.m.SelectTarget(target.FixedTarget); !apperrors.IsCode(err, apperrors.Busy) {
		t.Errorf("SelectTarget() while monitoring = %v, want Busy", err)
	}
}

func TestStableDetectionFlow(t *testing.T) {
	f := newFixture(t, nil, Config{MoveCursor: true})
	f.rec.set(confirm)
	f.start(t)

	ev := waitEvent(t, f.m, EventStable)
	d := ev.Detection
	if d == nil || d.Text != "Confirm" {
		t.Fatalf("Detection = %+v, want Confirm", d)
	}
	if d.ScreenX != 150 || d.ScreenY != 235 {
		t.Errorf("screen point = (%d, %d), want (150, 235)", d.ScreenX, d.ScreenY)
	}
	if d.Region != region {
		t.Errorf("Region = %v, want %v", d.Region, region)
	}
	waitFor(t, "cursor move", func() bool { return f.mouse.lastMove() == image.Pt(150, 235) })
	if f.beeper.beeps.Load() != 1 {
		t.Errorf("beeps = %d, want 1", f.beeper.beeps.Load())
	}

	st := f.m.Status()
	if !st.Monitoring || !st.Capturing || st.Detection == nil || st.Frames < 2 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestStableFiresOncePerAppearance(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.rec.set(confirm)
	f.start(t)

	waitEvent(t, f.m, EventStable)
	waitFor(t, "more frames", func() bool { return f.m.Status().Frames >= 6 })
	if n := f.beeper.beeps.Load(); n != 1 {
		t.Errorf("beeps = %d, want 1 while the target stays put", n)
	}
}

func TestUnchangedFrameReusesObservations(t *testing.T) {
	f := newFixture(t, nil, Config{HashDistance: 0})
	// newFixture maps 0 to -1; re-enable detection at exact match.
	f.m.cfg.HashDistance = 0
	f.rec.set(confirm)
	f.start(t)

	waitEvent(t, f.m, EventStable)
	if n := f.rec.count(); n != 1 {
		t.Errorf("recognizer calls = %d, want 1 for identical frames", n)
	}
}

func TestRecognizerErrorIsEmptyFrame(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.rec.err = errors.New("tesseract crashed")
	f.start(t)

	waitFor(t, "frames", func() bool { return f.m.Status().Frames >= 3 })
	if st := f.m.Status(); len(st.Tracked) != 0 || st.Detection != nil {
		t.Errorf("Status() = %+v, want nothing tracked", st)
	}
	if !f.m.Monitoring() {
		t.Error("recognizer errors should not end the session")
	}
}

func TestClickBlocked(t *testing.T) {
	t.Run("not monitoring", func(t *testing.T) {
		f := newFixture(t, nil, Config{})
		_, err := f.m.Click(context.Background())
		if !apperrors.IsCode(err, apperrors.NotMonitoring) {
			t.Errorf("Click() error = %v, want NotMonitoring", err)
		}
	})

	t.Run("not focused", func(t *testing.T) {
		f := newFixture(t, unfocused{target.Fixed{Region: region}}, Config{})
		f.rec.set(confirm)
		f.start(t)
		waitEvent(t, f.m, EventStable)
		_, err := f.m.Click(context.Background())
		if !apperrors.IsCode(err, apperrors.TargetNotFocused) {
			t.Errorf("Click() error = %v, want TargetNotFocused", err)
		}
	})

	t.Run("no detection", func(t *testing.T) {
		f := newFixture(t, nil, Config{})
		f.start(t)
		_, err := f.m.Click(context.Background())
		if !apperrors.IsCode(err, apperrors.NoDetection) {
			t.Errorf("Click() error = %v, want NoDetection", err)
		}
	})

	t.Run("no longer stable", func(t *testing.T) {
		f := newFixture(t, nil, Config{})
		f.rec.set(confirm)
		f.start(t)
		waitEvent(t, f.m, EventStable)
		f.rec.set()
		waitFor(t, "eviction", func() bool { return len(f.m.Status().Tracked) == 0 })
		_, err := f.m.Click(context.Background())
		if !apperrors.IsCode(err, apperrors.NotStable) {
			t.Errorf("Click() error = %v, want NotStable", err)
		}
	})

	t.Run("cooldown", func(t *testing.T) {
		f := newFixture(t, nil, Config{ClickCooldown: time.Minute})
		f.rec.set(confirm)
		f.start(t)
		waitEvent(t, f.m, EventStable)
		if _, err := f.m.Click(context.Background()); err != nil {
			t.Fatalf("first Click() error = %v", err)
		}
		_, err := f.m.Click(context.Background())
		if !apperrors.IsCode(err, apperrors.Cooldown) {
			t.Errorf("second Click() error = %v, want Cooldown", err)
		}
		if f.mouse.clickCount() != 1 {
			t.Errorf("clicks = %d, want 1", f.mouse.clickCount())
		}
	})
}

func TestClickLogsBlockedAction(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.m.Click(context.Background())
	recent := f.m.Activity().Recent(1)
	if len(recent) != 1 || recent[0].Message != "Click blocked: not monitoring" {
		t.Errorf("activity = %v", recent)
	}
}

func TestClickUsesLatestBox(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.rec.set(confirm)
	f.start(t)
	waitEvent(t, f.m, EventStable)

	// Small drift stays within tolerance and keeps the entry stable.
	moved := confirm
	moved.Box.X += 4
	f.rec.set(moved)
	waitFor(t, "drift", func() bool {
		e, ok := f.m.tracker.Stable("Confirm")
		return ok && e.Box.X == moved.Box.X
	})

	d, err := f.m.Click(context.Background())
	if err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if d.ScreenX != 154 || d.ScreenY != 235 {
		t.Errorf("clicked (%d, %d), want (154, 235)", d.ScreenX, d.ScreenY)
	}
	if got := f.mouse.lastMove(); got != image.Pt(154, 235) {
		t.Errorf("mouse at %v, want (154, 235)", got)
	}
}

func TestStopClearsSession(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.rec.set(confirm)
	f.start(t)
	waitEvent(t, f.m, EventStable)

	f.m.Stop()
	st := f.m.Status()
	if st.Monitoring || st.Capturing || st.Detection != nil || len(st.Tracked) != 0 {
		t.Errorf("Status() after Stop = %+v", st)
	}
	// Restart is allowed.
	if err := f.m.Start(context.Background()); err != nil {
		t.Errorf("Start() after Stop error = %v", err)
	}
}

func TestStatusDropsEvictedDetection(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.rec.set(confirm)
	f.start(t)
	waitEvent(t, f.m, EventStable)

	f.rec.set()
	waitFor(t, "eviction", func() bool { return len(f.m.Status().Tracked) == 0 })
	st := f.m.Status()
	if !st.Monitoring {
		t.Fatal("session should still be running")
	}
	if st.Detection != nil {
		t.Errorf("Status().Detection = %+v, want nil once the button is gone", st.Detection)
	}

	f.rec.set(confirm)
	waitEvent(t, f.m, EventStable)
	if st := f.m.Status(); st.Detection == nil || st.Detection.Text != "Confirm" {
		t.Errorf("Status().Detection = %+v, want Confirm after it returns", st.Detection)
	}
}

func TestParentContextEndsSession(t *testing.T) {
	f := newFixture(t, nil, Config{})
	if err := f.m.SelectTarget(target.FixedTarget); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	waitFor(t, "session end", func() bool { return !f.m.Monitoring() })
}

func TestScrollSearchFindsTarget(t *testing.T) {
	f := newFixture(t, nil, Config{Scroll: scroll.Config{MaxSteps: 10, Settle: 300 * time.Millisecond}})
	f.rec.fn = func() []stability.Observation {
		if f.mouse.scrollCount() >= 2 {
			return []stability.Observation{confirm}
		}
		return nil
	}
	f.start(t)

	if err := f.m.ScrollSearch(context.Background()); err != nil {
		t.Fatalf("ScrollSearch() error = %v", err)
	}
	if err := f.m.ScrollSearch(context.Background()); !apperrors.IsCode(err, apperrors.Busy) {
		t.Errorf("second ScrollSearch() = %v, want Busy", err)
	}
	f.m.waitScroll()

	if n := f.mouse.scrollCount(); n != 2 {
		t.Errorf("scroll steps = %d, want 2", n)
	}
	if st := f.m.Status(); st.Scroll != "idle" || st.Detection == nil {
		t.Errorf("Status() = %+v, want idle search with a detection", st)
	}
	last := f.m.Activity().Recent(1)
	if len(last) != 1 || last[0].Message != "Scroll search found a target after 2 steps" {
		t.Errorf("activity = %v", last)
	}
}

func TestScrollSearchCancel(t *testing.T) {
	f := newFixture(t, nil, Config{Scroll: scroll.Config{MaxSteps: 30, Settle: time.Second}})
	f.start(t)

	if f.m.CancelScroll() {
		t.Error("CancelScroll() with no search = true")
	}
	if err := f.m.ScrollSearch(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first step", func() bool { return f.mouse.scrollCount() >= 1 })
	if !f.m.CancelScroll() {
		t.Error("CancelScroll() = false, want true")
	}
	f.m.waitScroll()
	if n := f.mouse.scrollCount(); n != 1 {
		t.Errorf("scroll steps = %d, want 1", n)
	}
}

func TestScrollSearchRequiresMonitoring(t *testing.T) {
	f := newFixture(t, nil, Config{})
	if err := f.m.ScrollSearch(context.Background()); !apperrors.IsCode(err, apperrors.NotMonitoring) {
		t.Errorf("ScrollSearch() = %v, want NotMonitoring", err)
	}
}

func TestStopCancelsScrollSearch(t *testing.T) {
	f := newFixture(t, nil, Config{Scroll: scroll.Config{MaxSteps: 30, Settle: time.Second}})
	f.start(t)
	if err := f.m.ScrollSearch(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first step", func() bool { return f.mouse.scrollCount() >= 1 })
	f.m.Stop()
	f.m.waitScroll()
	if n := f.mouse.scrollCount(); n > 2 {
		t.Errorf("scroll steps = %d after Stop", n)
	}
}

func TestReconfigure(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.m.Reconfigure(Config{
		MoveCursor: true,
		Tracker:    stability.Config{RequiredFrames: 4},
	})
	if got := f.m.tracker.Config().RequiredFrames; got != 4 {
		t.Errorf("RequiredFrames = %d, want 4", got)
	}
	if !f.m.cfg.MoveCursor {
		t.Error("MoveCursor not applied")
	}
}

func TestStatusReportsBreaker(t *testing.T) {
	f := newFixture(t, nil, Config{})
	if st := f.m.Status(); st.Breaker != "" {
		t.Errorf("Breaker = %q for an unguarded recognizer", st.Breaker)
	}
}

func TestRestampCopies(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []stability.Observation{confirm}
	out := restamp(in, screen.Frame{CapturedAt: at})
	if !out[0].ObservedAt.Equal(at) || !in[0].ObservedAt.IsZero() {
		t.Errorf("restamp() = %v, input = %v", out, in)
	}
	if restamp(nil, screen.Frame{}) != nil {
		t.Error("restamp(nil) should be nil")
	}
}
