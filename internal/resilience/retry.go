package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
)

// RetryConfig holds retry settings. MaxRetries counts attempts after the first.
type RetryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
	IsRetryable func(error) bool
}

// DefaultRetryConfig returns the recognizer client defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
		IsRetryable: IsTransient,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsTransient
	}
	return c
}

// IsTransient reports whether err is worth another attempt: an AppError with a
// retryable code, or a gRPC status of Unavailable, DeadlineExceeded or
// ResourceExhausted. Breaker rejections are never retried.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrOpen) {
		return false
	}
	if apperrors.IsRetryable(err) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Retry runs fn until it succeeds, returns a non-transient error, retries run
// out, or ctx ends.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()

	var err error
	for attempt := 0; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries || !cfg.IsRetryable(err) {
			return err
		}

		delay := backoff(cfg, attempt)
		slog.Debug("retrying", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func backoff(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.BaseDelay << min(attempt, 8)
	if d > cfg.MaxDelay || d <= 0 {
		d = cfg.MaxDelay
	}
	if cfg.Jitter == 0 {
		return d
	}
	j := float64(d) * cfg.Jitter * (rand.Float64() - 0.5)
	return time.Duration(float64(d) + j)
}
