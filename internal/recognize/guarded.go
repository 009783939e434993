package recognize

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/resilience"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
)

// Guarded bounds each call with a timeout and fails fast while the backend
// keeps failing.
type Guarded struct {
	next    Recognizer
	timeout time.Duration
	breaker *resilience.Breaker
}

// NewGuarded wraps next. A zero timeout uses DefaultTimeout.
func NewGuarded(next Recognizer, timeout time.Duration, cfg resilience.Config) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guarded{
		next:    next,
		timeout: timeout,
		breaker: resilience.NewBreaker("recognizer", cfg),
	}
}

// Recognize implements Recognizer. Timeouts surface as apperrors.Timeout and
// other failures as apperrors.RecognizeFailed.
func (g *Guarded) Recognize(ctx context.Context, f screen.Frame) ([]stability.Observation, error) {
	return resilience.Do(g.breaker, func() ([]stability.Observation, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		obs, err := g.next.Recognize(ctx, f)
		switch {
		case err == nil:
			return obs, nil
		case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
			return nil, apperrors.Wrapf(err, apperrors.Timeout, "recognize frame %d exceeded %s", f.Seq, g.timeout)
		case apperrors.CodeOf(err) != apperrors.Unknown:
			return nil, err
		default:
			return nil, apperrors.Wrapf(err, apperrors.RecognizeFailed, "recognize frame %d", f.Seq)
		}
	})
}

// Breaker exposes the breaker for status reporting.
func (g *Guarded) Breaker() *resilience.Breaker { return g.breaker }

// Probe forwards to the wrapped recognizer.
func (g *Guarded) Probe(ctx context.Context) error { return Probe(ctx, g.next) }
