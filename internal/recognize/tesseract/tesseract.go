// Package tesseract is the local OCR backend: gocv cleans up the frame and
// Tesseract reports word-level boxes.
package tesseract

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
)

const (
	// Scale is the upscale factor applied before OCR; button labels are small.
	Scale = 2.0

	// MinConfidence drops words Tesseract is unsure about (0..1).
	MinConfidence = 0.3
)

// Config selects languages and preprocessing.
type Config struct {
	Languages  []string
	Preprocess bool
}

// Recognizer wraps a single Tesseract client. Tesseract is not safe for
// concurrent use, so calls are serialized.
type Recognizer struct {
	cfg Config

	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a recognizer. Languages default to English.
func New(cfg Config) (*Recognizer, error) {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "tesseract languages")
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.Internal, "tesseract page segmentation")
	}
	return &Recognizer{cfg: cfg, client: client}, nil
}

// Recognize implements recognize.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, f screen.Frame) ([]stability.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scale := 1.0
	var data []byte
	var err error
	if r.cfg.Preprocess {
		data, err = preprocess(f.Image)
		scale = Scale
	} else {
		data, err = f.PNG()
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.RecognizeFailed, "prepare frame %d", f.Seq)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.RecognizeFailed, "tesseract image")
	}
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.RecognizeFailed, "tesseract boxes")
	}
	return toObservations(boxes, scale, f), nil
}

func toObservations(boxes []gosseract.BoundingBox, scale float64, f screen.Frame) []stability.Observation {
	out := make([]stability.Observation, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		conf := b.Confidence / 100
		if text == "" || conf < MinConfidence {
			continue
		}
		out = append(out, stability.Observation{
			Text:       text,
			Box:        unscale(b.Box, scale),
			Confidence: conf,
			ObservedAt: f.CapturedAt,
		})
	}
	return out
}

func unscale(r image.Rectangle, scale float64) stability.Box {
	return stability.Box{
		X:      float64(r.Min.X) / scale,
		Y:      float64(r.Min.Y) / scale,
		Width:  float64(r.Dx()) / scale,
		Height: float64(r.Dy()) / scale,
	}
}

// preprocess converts to grayscale, upscales and binarizes with Otsu, then
// re-encodes as PNG for Tesseract.
func preprocess(img image.Image) ([]byte, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	big := gocv.NewMat()
	defer big.Close()
	gocv.Resize(gray, &big, image.Point{}, Scale, Scale, gocv.InterpolationCubic)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(big, &bin, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, bin)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Probe checks the Tesseract install has every configured language.
func (r *Recognizer) Probe(context.Context) error {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "list tesseract languages")
	}
	have := make(map[string]bool, len(langs))
	for _, l := range langs {
		have[l] = true
	}
	for _, l := range r.cfg.Languages {
		if !have[l] {
			return apperrors.Newf(apperrors.Unavailable, "tesseract language %q not installed", l).
				WithMetadata("version", gosseract.Version())
		}
	}
	return nil
}

// Close releases the Tesseract client.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
