// Package screen captures a screen region at a fixed rate and hands frames to
// the recognizer.
package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"time"
)

// Region is a rectangle in screen coordinates.
type Region struct {
	X      int `json:"x" mapstructure:"x"`
	Y      int `json:"y" mapstructure:"y"`
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Empty reports a zero-size region (minimized or hidden window).
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Rect converts to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// ToScreen translates a region-local point to screen coordinates, rounding to
// the nearest pixel.
func (r Region) ToScreen(x, y float64) image.Point {
	return image.Pt(r.X+int(math.Round(x)), r.Y+int(math.Round(y)))
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Frame is one captured image of a region. Image bounds start at (0,0);
// Region maps frame coordinates back to the screen.
type Frame struct {
	Seq        uint64
	Image      image.Image
	Region     Region
	CapturedAt time.Time

	png []byte
}

// PNG returns the frame encoded as PNG, encoding on first use.
func (f *Frame) PNG() ([]byte, error) {
	if f.png != nil {
		return f.png, nil
	}
	if f.Image == nil {
		return nil, fmt.Errorf("frame %d has no image", f.Seq)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, f.Image); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	f.png = buf.Bytes()
	return f.png, nil
}

// NewFrameFromPNG decodes a PNG received over the wire into a frame. An empty
// region defaults to the image size at the origin.
func NewFrameFromPNG(data []byte, region Region) (Frame, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("decode png: %w", err)
	}
	if region.Empty() {
		b := img.Bounds()
		region = Region{Width: b.Dx(), Height: b.Dy()}
	}
	return Frame{Image: img, Region: region, CapturedAt: time.Now(), png: data}, nil
}

