// Package input performs the mouse actions that follow a stable detection.
package input

import (
	"context"
	"image"
	"log/slog"
	"time"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
)

// Mouse is the injection backend.
type Mouse interface {
	Move(x, y int)
	Down() error
	Up() error
	// ScrollDown scrolls the window under the cursor by lines.
	ScrollDown(lines int) error
}

// Controller sequences mouse actions and gates clicks behind a cooldown.
type Controller struct {
	mouse    Mouse
	cooldown *Cooldown
	delay    time.Duration
}

// NewController creates a controller. A non-positive cooldown uses the default.
func NewController(m Mouse, cooldown time.Duration) *Controller {
	if cooldown <= 0 {
		cooldown = DefaultClickCooldown
	}
	return &Controller{mouse: m, cooldown: NewCooldown(cooldown), delay: PressDelay}
}

// MoveTo places the cursor without clicking.
func (c *Controller) MoveTo(p image.Point) {
	c.mouse.Move(p.X, p.Y)
}

// ClickAt moves to p and clicks. Returns an apperrors.Cooldown error without
// touching the mouse while the cooldown is active.
func (c *Controller) ClickAt(ctx context.Context, p image.Point) error {
	if ok, left := c.cooldown.Try(); !ok {
		return apperrors.Newf(apperrors.Cooldown, "click cooldown active for %s", left.Round(time.Millisecond))
	}

	c.mouse.Move(p.X, p.Y)
	if err := sleep(ctx, c.delay); err != nil {
		return err
	}
	if err := c.mouse.Down(); err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "mouse down")
	}
	// Release even if ctx ends; a stuck button is worse than a late one.
	_ = sleep(ctx, c.delay)
	if err := c.mouse.Up(); err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "mouse up")
	}

	slog.Info("clicked", "x", p.X, "y", p.Y)
	return nil
}

// ScrollStep scrolls one step down. It satisfies scroll.Scroller.
func (c *Controller) ScrollStep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.mouse.ScrollDown(ScrollLines); err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "scroll")
	}
	return nil
}

// CooldownRemaining reports the time until the next click is allowed.
func (c *Controller) CooldownRemaining() time.Duration { return c.cooldown.Remaining() }

// SetCooldown changes the click cooldown.
func (c *Controller) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultClickCooldown
	}
	c.cooldown.SetPeriod(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
