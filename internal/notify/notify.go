// Package notify defines the audible cue played on a stable detection. The
// PortAudio player lives in the portaudio subpackage so that callers of the
// interface stay free of cgo.
package notify

import (
	"math"
	"time"
)

const (
	// SampleRate is the rate Tone output is rendered for.
	SampleRate = 44100

	// DefaultFrequency and DefaultDuration describe the beep.
	DefaultFrequency = 880.0
	DefaultDuration  = 150 * time.Millisecond
)

// Beeper plays a short cue. Beep must not block the caller.
type Beeper interface {
	Beep()
	Close() error
}

// Nop is the Beeper used when audio is disabled or unavailable.
type Nop struct{}

// Beep implements Beeper.
func (Nop) Beep() {}

// Close implements Beeper.
func (Nop) Close() error { return nil }

// Tone renders a sine wave with a short linear fade at both ends to avoid clicks.
func Tone(freq float64, d time.Duration, rate int) []float32 {
	n := int(d.Seconds() * float64(rate))
	out := make([]float32, n)
	fade := rate / 200 // 5ms
	for i := range out {
		amp := 0.3
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if n-i <= fade {
			amp *= float64(n-i-1) / float64(fade)
		}
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}
