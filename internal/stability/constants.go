// Package stability turns noisy per-frame text detections into stable events
package stability

// Tracker defaults
const (
	// Consecutive similar frames before a detection counts as stable
	DefaultRequiredFrames = 2

	// Max |dx|, |dy| between successive boxes (strict)
	DefaultPositionTolerance = 10.0

	// Max |dw|, |dh| between successive boxes (strict); looser to absorb glyph jitter
	DefaultSizeTolerance = 15.0
)
