package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/GriffinCanCode/confirmscout/internal/screen"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // config key, e.g. "tracker.required_frames"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted log.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted log.format values.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// ValidRecognizerBackends returns the accepted recognizer.backend values.
func ValidRecognizerBackends() []string {
	return []string{BackendTesseract, BackendGRPC}
}

// ValidCaptureBackends returns the accepted capture.backend values.
func ValidCaptureBackends() []string {
	return []string{screen.BackendScreenshot, screen.BackendExec}
}

// Validate checks the Config for invalid values and returns all failures.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateHTTP()...)
	errs = append(errs, c.validateLog()...)
	errs = append(errs, c.validateCapture()...)
	errs = append(errs, c.validateTracker()...)
	errs = append(errs, c.validateRecognizer()...)
	errs = append(errs, c.validateAction()...)
	errs = append(errs, c.validateScroll()...)
	return errs
}

func oneOf(field, value string, valid []string) []ValidationError {
	if slices.Contains(valid, strings.ToLower(value)) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
	}}
}

func (c *Config) validateHTTP() []ValidationError {
	var errs []ValidationError
	if c.HTTP.Addr == "" {
		errs = append(errs, ValidationError{Field: "http.addr", Value: c.HTTP.Addr, Message: "must not be empty"})
	}
	if c.HTTP.RateLimit < 1 {
		errs = append(errs, ValidationError{Field: "http.rate_limit", Value: c.HTTP.RateLimit, Message: "must be at least 1"})
	}
	if c.HTTP.RateWindow <= 0 {
		errs = append(errs, ValidationError{Field: "http.rate_window", Value: c.HTTP.RateWindow, Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateLog() []ValidationError {
	errs := oneOf("log.level", c.Log.Level, ValidLogLevels())
	return append(errs, oneOf("log.format", c.Log.Format, ValidLogFormats())...)
}

func (c *Config) validateCapture() []ValidationError {
	var errs []ValidationError
	if c.Capture.FPS < 1 || c.Capture.FPS > screen.MaxFPS {
		errs = append(errs, ValidationError{
			Field:   "capture.fps",
			Value:   c.Capture.FPS,
			Message: fmt.Sprintf("must be between 1 and %d", screen.MaxFPS),
		})
	}
	errs = append(errs, oneOf("capture.backend", c.Capture.Backend, ValidCaptureBackends())...)

	r := c.Capture.Region
	if r.Width < 0 || r.Height < 0 {
		errs = append(errs, ValidationError{Field: "capture.region", Value: r.String(), Message: "size must not be negative"})
	}
	// -1 disables change detection; pHash is 64 bits.
	if c.Capture.HashDistance < -1 || c.Capture.HashDistance > 64 {
		errs = append(errs, ValidationError{
			Field:   "capture.hash_distance",
			Value:   c.Capture.HashDistance,
			Message: "must be between -1 and 64",
		})
	}
	return errs
}

func (c *Config) validateTracker() []ValidationError {
	var errs []ValidationError
	if c.Tracker.RequiredFrames < 1 {
		errs = append(errs, ValidationError{Field: "tracker.required_frames", Value: c.Tracker.RequiredFrames, Message: "must be at least 1"})
	}
	if c.Tracker.PositionTolerance <= 0 {
		errs = append(errs, ValidationError{Field: "tracker.position_tolerance", Value: c.Tracker.PositionTolerance, Message: "must be positive"})
	}
	if c.Tracker.SizeTolerance <= 0 {
		errs = append(errs, ValidationError{Field: "tracker.size_tolerance", Value: c.Tracker.SizeTolerance, Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateRecognizer() []ValidationError {
	errs := oneOf("recognizer.backend", c.Recognizer.Backend, ValidRecognizerBackends())

	if strings.EqualFold(c.Recognizer.Backend, BackendGRPC) && c.Recognizer.Addr == "" {
		errs = append(errs, ValidationError{Field: "recognizer.addr", Value: c.Recognizer.Addr, Message: "required for the grpc backend"})
	}
	if len(c.Recognizer.Languages) == 0 {
		errs = append(errs, ValidationError{Field: "recognizer.languages", Value: c.Recognizer.Languages, Message: "must name at least one language"})
	}
	if len(c.Recognizer.Targets) == 0 {
		errs = append(errs, ValidationError{Field: "recognizer.targets", Value: c.Recognizer.Targets, Message: "must name at least one label"})
	}
	if c.Recognizer.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "recognizer.timeout", Value: c.Recognizer.Timeout, Message: "must be positive"})
	}
	if c.Recognizer.Breaker.Threshold < 1 {
		errs = append(errs, ValidationError{Field: "recognizer.breaker.threshold", Value: c.Recognizer.Breaker.Threshold, Message: "must be at least 1"})
	}
	return errs
}

func (c *Config) validateAction() []ValidationError {
	if c.Action.ClickCooldown < 0 {
		return []ValidationError{{Field: "action.click_cooldown", Value: c.Action.ClickCooldown, Message: "must not be negative"}}
	}
	return nil
}

func (c *Config) validateScroll() []ValidationError {
	var errs []ValidationError
	if c.Scroll.MaxSteps < 1 {
		errs = append(errs, ValidationError{Field: "scroll.max_steps", Value: c.Scroll.MaxSteps, Message: "must be at least 1"})
	}
	if c.Scroll.Settle <= 0 {
		errs = append(errs, ValidationError{Field: "scroll.settle", Value: c.Scroll.Settle, Message: "must be positive"})
	}
	return errs
}
