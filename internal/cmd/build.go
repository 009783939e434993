package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/confirmscout/internal/config"
	"github.com/GriffinCanCode/confirmscout/internal/desktop"
	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
	"github.com/GriffinCanCode/confirmscout/internal/notify/portaudio"
	"github.com/GriffinCanCode/confirmscout/internal/recognize"
	"github.com/GriffinCanCode/confirmscout/internal/recognize/tesseract"
	"github.com/GriffinCanCode/confirmscout/internal/resilience"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/target"
)

// app is a fully wired monitor plus everything that must be closed with it.
type app struct {
	mgr     *monitor.Manager
	rec     *recognize.Guarded
	closers []io.Closer
}

func (a *app) Close() error {
	errs := []error{a.mgr.Close()}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// monitorConfig maps the file settings onto a session config.
func monitorConfig(cfg *config.Config) monitor.Config {
	return monitor.Config{
		FPS:           cfg.Capture.FPS,
		HashDistance:  cfg.Capture.HashDistance,
		MoveCursor:    cfg.Action.MoveCursor,
		ClickCooldown: cfg.Action.ClickCooldown,
		Tracker:       cfg.Tracker,
		Scroll:        cfg.Scroll,
	}
}

// newBaseRecognizer returns the raw OCR backend selected by cfg.
func newBaseRecognizer(rc config.RecognizerConfig) (recognize.Recognizer, io.Closer, error) {
	switch strings.ToLower(rc.Backend) {
	case config.BackendGRPC:
		c, err := recognize.Dial(rc.Addr)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.BackendTesseract, "":
		t, err := tesseract.New(tesseract.Config{Languages: rc.Languages, Preprocess: rc.Preprocess})
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	default:
		return nil, nil, apperrors.Newf(apperrors.ConfigInvalid, "unknown recognizer backend %q", rc.Backend)
	}
}

// newRecognizer stacks target filtering and the breaker on the backend.
func newRecognizer(rc config.RecognizerConfig) (*recognize.Guarded, io.Closer, error) {
	base, closer, err := newBaseRecognizer(rc)
	if err != nil {
		return nil, nil, err
	}
	g := recognize.NewGuarded(recognize.NewTargetFilter(base, rc.Targets), rc.Timeout, rc.Breaker)
	g.Breaker().OnStateChange(func(from, to resilience.State) {
		slog.Warn("recognizer breaker", "from", from.String(), "to", to.String())
	})
	return g, closer, nil
}

// newLocator uses the configured fixed region when there is one, otherwise
// the desktop's windows.
func newLocator(cc config.CaptureConfig) target.Locator {
	if !cc.Region.Empty() {
		return target.Fixed{Region: cc.Region}
	}
	return desktop.Windows{}
}

func buildApp(cfg *config.Config) (*app, error) {
	capturer, err := screen.NewCapturer(cfg.Capture.Backend)
	if err != nil {
		return nil, err
	}
	rec, recCloser, err := newRecognizer(cfg.Recognizer)
	if err != nil {
		_ = capturer.Close()
		return nil, err
	}

	mgr := monitor.New(monitor.Deps{
		Capturer:   capturer,
		Recognizer: rec,
		Mouse:      desktop.Mouse{},
		Locator:    newLocator(cfg.Capture),
		Beeper:     portaudio.New(cfg.Action.Beep),
	}, monitorConfig(cfg))

	return &app{mgr: mgr, rec: rec, closers: []io.Closer{capturer, recCloser}}, nil
}

// probe logs whether the recognizer answers; a failure is not fatal since
// the breaker covers a backend that comes up later.
func probe(ctx context.Context, rec recognize.Recognizer) {
	if err := recognize.Probe(ctx, rec); err != nil {
		slog.Warn("recognizer not ready", "error", err)
		return
	}
	slog.Info("recognizer ready")
}

// pickTarget resolves a --window value: a PID, or a case-insensitive title
// substring. An empty query selects the fixed region if that is all there is.
func pickTarget(list []target.Target, query string) (target.Target, error) {
	if query == "" {
		if len(list) == 1 && list[0] == target.FixedTarget {
			return list[0], nil
		}
		return target.Target{}, apperrors.New(apperrors.InvalidTarget, "no window given; use --window or set capture.region")
	}
	if pid, err := strconv.Atoi(query); err == nil {
		for _, t := range list {
			if t.PID == pid {
				return t, nil
			}
		}
		return target.Target{}, apperrors.Newf(apperrors.InvalidTarget, "no window with pid %d", pid)
	}
	q := strings.ToLower(query)
	var matches []target.Target
	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Title), q) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return target.Target{}, apperrors.Newf(apperrors.InvalidTarget, "no window matches %q", query)
	case 1:
		return matches[0], nil
	default:
		return target.Target{}, apperrors.Newf(apperrors.InvalidTarget, "%d windows match %q; use a pid", len(matches), query)
	}
}

// selectWindow picks and selects the target for a session.
func selectWindow(mgr *monitor.Manager, query string) (target.Target, error) {
	list, err := mgr.Windows()
	if err != nil {
		return target.Target{}, err
	}
	t, err := pickTarget(list, query)
	if err != nil {
		return target.Target{}, err
	}
	return t, mgr.SelectTarget(t)
}
