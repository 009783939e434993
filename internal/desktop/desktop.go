// Package desktop binds mouse injection and window lookup to the local
// desktop through robotgo.
package desktop

import (
	"log/slog"
	"sort"

	"github.com/go-vgo/robotgo"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/target"
)

// Mouse implements input.Mouse.
type Mouse struct{}

// Move implements input.Mouse.
func (Mouse) Move(x, y int) { robotgo.Move(x, y) }

// Down implements input.Mouse.
func (Mouse) Down() error { return robotgo.Toggle("left") }

// Up implements input.Mouse.
func (Mouse) Up() error { return robotgo.Toggle("left", "up") }

// ScrollDown implements input.Mouse.
func (Mouse) ScrollDown(lines int) error {
	robotgo.ScrollDir(lines, "down")
	return nil
}

// Windows implements target.Locator over top-level windows with a title.
type Windows struct{}

// List implements target.Locator.
func (Windows) List() ([]target.Target, error) {
	procs, err := robotgo.Process()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "list processes")
	}
	out := make([]target.Target, 0, len(procs))
	for _, p := range procs {
		title := robotgo.GetTitle(p.Pid)
		if title == "" {
			continue
		}
		out = append(out, target.Target{PID: p.Pid, Title: title, Name: p.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	slog.Debug("listed windows", "count", len(out))
	return out, nil
}

// Bounds implements target.Locator.
func (Windows) Bounds(t target.Target) (screen.Region, error) {
	ok, err := robotgo.PidExists(t.PID)
	if err != nil || !ok {
		return screen.Region{}, apperrors.Newf(apperrors.InvalidTarget, "window %s no longer exists", t)
	}
	x, y, w, h := robotgo.GetBounds(t.PID)
	return screen.Region{X: x, Y: y, Width: w, Height: h}, nil
}

// Focused implements target.Locator.
func (Windows) Focused(t target.Target) bool {
	return robotgo.GetPid() == t.PID
}
