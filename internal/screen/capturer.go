package screen

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
)

// Capturer grabs the pixels of a screen region. Returned images start at (0,0).
type Capturer interface {
	Capture(r Region) (image.Image, error)
	Close() error
}

// Backend names accepted by NewCapturer.
const (
	BackendScreenshot = "screenshot"
	BackendExec       = "exec"
)

// NewCapturer returns the capturer for backend ("" selects screenshot).
func NewCapturer(backend string) (Capturer, error) {
	switch backend {
	case "", BackendScreenshot:
		return DisplayCapturer{}, nil
	case BackendExec:
		return NewExecCapturer()
	default:
		return nil, apperrors.Newf(apperrors.ConfigInvalid, "unknown capture backend %q", backend)
	}
}

// DisplayCapturer reads the region straight from the display server.
type DisplayCapturer struct{}

// Capture implements Capturer.
func (DisplayCapturer) Capture(r Region) (image.Image, error) {
	if r.Empty() {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "empty region %s", r)
	}
	img, err := screenshot.CaptureRect(r.Rect())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, fmt.Sprintf("capture %s", r))
	}
	return img, nil
}

// Close implements Capturer.
func (DisplayCapturer) Close() error { return nil }

// Displays lists the bounds of all active displays.
func Displays() []Region {
	n := screenshot.NumActiveDisplays()
	out := make([]Region, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		out = append(out, Region{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()})
	}
	return out
}
