// Package recognize turns frames into text observations. The tracker only
// sees the observations; which engine produced them is decided here.
package recognize

import (
	"context"

	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
)

// Recognizer extracts text with frame-local boxes from a frame.
type Recognizer interface {
	Recognize(ctx context.Context, f screen.Frame) ([]stability.Observation, error)
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, f screen.Frame) ([]stability.Observation, error)

// Recognize implements Recognizer.
func (fn Func) Recognize(ctx context.Context, f screen.Frame) ([]stability.Observation, error) {
	return fn(ctx, f)
}

// Prober is implemented by recognizers that can check their backend is usable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Probe checks r's backend when it supports probing. Recognizers without a
// probe are assumed available.
func Probe(ctx context.Context, r Recognizer) error {
	if p, ok := r.(Prober); ok {
		return p.Probe(ctx)
	}
	return nil
}

// TargetFilter keeps only observations whose text matches one of the targets.
type TargetFilter struct {
	next    Recognizer
	targets map[string]struct{}
}

// NewTargetFilter wraps next. Empty targets fall back to DefaultTargets.
func NewTargetFilter(next Recognizer, targets []string) *TargetFilter {
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if k := stability.Key(t); k != "" {
			set[k] = struct{}{}
		}
	}
	return &TargetFilter{next: next, targets: set}
}

// Recognize implements Recognizer.
func (f *TargetFilter) Recognize(ctx context.Context, frame screen.Frame) ([]stability.Observation, error) {
	obs, err := f.next.Recognize(ctx, frame)
	if err != nil {
		return nil, err
	}
	out := obs[:0:0]
	for _, o := range obs {
		if f.Match(o.Text) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Match reports whether text is a target.
func (f *TargetFilter) Match(text string) bool {
	_, ok := f.targets[stability.Key(text)]
	return ok
}

// Probe forwards to the wrapped recognizer.
func (f *TargetFilter) Probe(ctx context.Context) error { return Probe(ctx, f.next) }
