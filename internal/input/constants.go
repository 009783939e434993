package input

import "time"

const (
	// DefaultClickCooldown is the minimum gap between two clicks.
	DefaultClickCooldown = time.Second

	// PressDelay separates move, press and release so the target window
	// registers a real click.
	PressDelay = 50 * time.Millisecond

	// ScrollLines is how far one scroll-search step moves.
	ScrollLines = 1
)
