package stability

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Box is an axis-aligned rectangle in frame-local coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

func (b Box) String() string {
	return fmt.Sprintf("(%.0f,%.0f %.0fx%.0f)", b.X, b.Y, b.Width, b.Height)
}

// Observation is one recognizer reading for a single frame.
type Observation struct {
	Text       string
	Box        Box
	Confidence float64
	ObservedAt time.Time
}

// Similar reports whether b is within tolerance of a on every axis.
// Bounds are strict: a shift of exactly the tolerance is dissimilar.
func Similar(a, b Box, cfg Config) bool {
	cfg = cfg.withDefaults()
	return math.Abs(a.X-b.X) < cfg.PositionTolerance &&
		math.Abs(a.Y-b.Y) < cfg.PositionTolerance &&
		math.Abs(a.Width-b.Width) < cfg.SizeTolerance &&
		math.Abs(a.Height-b.Height) < cfg.SizeTolerance
}

// Key folds text into the case-insensitive form used to correlate frames.
func Key(text string) string {
	return cases.Fold().String(strings.TrimSpace(text))
}
