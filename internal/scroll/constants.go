package scroll

import "time"

const (
	// DefaultMaxSteps bounds one search.
	DefaultMaxSteps = 30

	// DefaultSettle is the wait after each step for new frames to arrive.
	DefaultSettle = 500 * time.Millisecond
)
