// Package target tracks which window is being watched and where it is.
package target

import (
	"fmt"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
)

// Target identifies a watched window by process.
type Target struct {
	PID   int    `json:"pid"`
	Title string `json:"title"`
	Name  string `json:"name,omitempty"`
}

// Zero reports an unset target.
func (t Target) Zero() bool { return t.PID == 0 && t.Title == "" }

func (t Target) String() string {
	if t.Title != "" {
		return fmt.Sprintf("%q (pid %d)", t.Title, t.PID)
	}
	return fmt.Sprintf("pid %d", t.PID)
}

// Locator enumerates windows and resolves their screen position.
type Locator interface {
	List() ([]Target, error)
	// Bounds returns the on-screen region of t. A gone window yields an
	// apperrors.InvalidTarget error; a minimized one an empty region.
	Bounds(t Target) (screen.Region, error)
	Focused(t Target) bool
}

// Validate checks t can be monitored.
func Validate(l Locator, t Target) error {
	if t.Zero() {
		return apperrors.New(apperrors.InvalidTarget, "no target selected")
	}
	if _, err := l.Bounds(t); err != nil {
		if apperrors.IsCode(err, apperrors.InvalidTarget) {
			return err
		}
		return apperrors.Wrapf(err, apperrors.InvalidTarget, "target %s", t)
	}
	return nil
}

// RegionOf returns a screen.RegionFunc that re-resolves t each tick.
func RegionOf(l Locator, t Target) screen.RegionFunc {
	return func() (screen.Region, error) { return l.Bounds(t) }
}

// Fixed is a locator for a configured static region; it is always focused.
type Fixed struct {
	Region screen.Region
}

// FixedTarget is the single target a Fixed locator exposes.
var FixedTarget = Target{PID: -1, Title: "fixed region"}

// List implements Locator.
func (f Fixed) List() ([]Target, error) { return []Target{FixedTarget}, nil }

// Bounds implements Locator.
func (f Fixed) Bounds(t Target) (screen.Region, error) {
	if t != FixedTarget {
		return screen.Region{}, apperrors.Newf(apperrors.InvalidTarget, "unknown target %s", t)
	}
	return f.Region, nil
}

// Focused implements Locator.
func (f Fixed) Focused(Target) bool { return true }
