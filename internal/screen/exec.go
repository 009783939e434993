package screen

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	_ "image/jpeg" // screenshot tools may write JPEG
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
)

// ExecCapturer shells out to the platform screenshot tool, then crops the
// requested region. It is a fallback for hosts where direct display access is
// unavailable (sandboxed sessions, some Wayland compositors).
type ExecCapturer struct {
	tempDir string
}

// NewExecCapturer creates the temp directory the tool writes into.
func NewExecCapturer() (*ExecCapturer, error) {
	dir, err := os.MkdirTemp("", "confirmscout-screen-*")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "create screenshot dir")
	}
	return &ExecCapturer{tempDir: dir}, nil
}

// Capture implements Capturer.
func (c *ExecCapturer) Capture(r Region) (image.Image, error) {
	if r.Empty() {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "empty region %s", r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	path := filepath.Join(c.tempDir, "frame.png")
	defer os.Remove(path)

	cmd, err := screenshotCommand(ctx, path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "no screenshot tool")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Debug("screenshot tool failed", "cmd", cmd.Path, "stderr", stderr.String())
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "screenshot tool")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "read screenshot")
	}
	full, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "decode screenshot")
	}
	return crop(full, r)
}

// Close removes the temp directory.
func (c *ExecCapturer) Close() error {
	if c.tempDir == "" {
		return nil
	}
	return os.RemoveAll(c.tempDir)
}

// crop copies r out of img into a zero-origin RGBA.
func crop(img image.Image, r Region) (image.Image, error) {
	rect := r.Rect().Intersect(img.Bounds())
	if rect.Empty() {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "region %s outside screen %v", r, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}
