package screen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/syncx"
)

// RegionFunc resolves the region to capture on each tick. Window targets move,
// so it is called every time.
type RegionFunc func() (Region, error)

// StaticRegion always resolves to r.
func StaticRegion(r Region) RegionFunc {
	return func() (Region, error) { return r, nil }
}

// Source emits frames of a region at a fixed rate.
type Source struct {
	capturer Capturer
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	seq     uint64
	dropped func() uint64
}

// NewSource creates an idle source.
func NewSource(c Capturer) *Source {
	return &Source{capturer: c, now: time.Now}
}

// Start begins capturing. Frames arrive in capture order; when the consumer
// lags, only the newest pending frame is kept. The channel closes after Stop
// or when ctx ends.
func (s *Source) Start(ctx context.Context, resolve RegionFunc, fps int) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, apperrors.New(apperrors.Busy, "frame source already running")
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}

	ctx, cancel := context.WithCancel(ctx)
	box := syncx.NewMailbox[Frame]()
	done := make(chan struct{})
	s.cancel, s.done, s.dropped = cancel, done, box.Dropped

	go s.run(ctx, resolve, time.Second/time.Duration(fps), box, done)

	slog.Info("frame source started", "fps", fps)
	return box.C(), nil
}

func (s *Source) run(ctx context.Context, resolve RegionFunc, interval time.Duration, box *syncx.Mailbox[Frame], done chan struct{}) {
	defer close(done)
	defer s.release(done)
	defer box.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f, ok := s.captureOnce(resolve); ok {
				box.Put(f)
			}
		}
	}
}

func (s *Source) captureOnce(resolve RegionFunc) (Frame, bool) {
	region, err := resolve()
	if err != nil {
		slog.Debug("region unavailable, skipping tick", "error", err)
		return Frame{}, false
	}
	if region.Empty() {
		slog.Debug("empty region, skipping tick", "region", region.String())
		return Frame{}, false
	}

	img, err := s.capturer.Capture(region)
	if err != nil {
		slog.Warn("capture failed", "region", region.String(), "error", err)
		return Frame{}, false
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return Frame{Seq: seq, Image: img, Region: region, CapturedAt: s.now()}, true
}

// release clears the running state when the loop ends on its own (parent ctx
// cancelled) so the source can be started again.
func (s *Source) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.cancel()
		s.cancel, s.done = nil, nil
	}
}

// Stop halts capture and waits for the loop to exit. Safe to call when idle.
func (s *Source) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("frame source stopped")
}

// Running reports whether capture is active.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Dropped returns how many frames of the current or last run were coalesced
// because the consumer lagged.
func (s *Source) Dropped() uint64 {
	s.mu.Lock()
	fn := s.dropped
	s.mu.Unlock()
	if fn == nil {
		return 0
	}
	return fn()
}
