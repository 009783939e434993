// Package config loads settings from defaults, an optional YAML file and
// CONFIRMSCOUT_* environment variables.
package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/recognize"
	"github.com/GriffinCanCode/confirmscout/internal/resilience"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/scroll"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
)

// EnvPrefix prefixes every environment override, e.g. CONFIRMSCOUT_CAPTURE_FPS.
const EnvPrefix = "CONFIRMSCOUT"

// Recognizer backends.
const (
	BackendTesseract = "tesseract"
	BackendGRPC      = "grpc"
)

// Config is the complete application configuration. Each section maps to a
// top-level YAML key.
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Tracker    stability.Config `mapstructure:"tracker"`
	Recognizer RecognizerConfig `mapstructure:"recognizer"`
	Action     ActionConfig     `mapstructure:"action"`
	Scroll     scroll.Config    `mapstructure:"scroll"`
}

// HTTPConfig configures the control server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// Websocket commands allowed per connection within RateWindow.
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// CaptureConfig controls screen capture and frame change detection.
type CaptureConfig struct {
	FPS          int           `mapstructure:"fps"`
	Backend      string        `mapstructure:"backend"`
	Region       screen.Region `mapstructure:"region"` // used when no window is selected
	HashDistance int           `mapstructure:"hash_distance"`
}

// RecognizerConfig selects the OCR backend and the words that count as
// targets. Timeout and Breaker guard each call.
type RecognizerConfig struct {
	Backend    string            `mapstructure:"backend"`
	Addr       string            `mapstructure:"addr"`   // remote recognizer, grpc backend
	Listen     string            `mapstructure:"listen"` // recognizer command
	Languages  []string          `mapstructure:"languages"`
	Targets    []string          `mapstructure:"targets"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Preprocess bool              `mapstructure:"preprocess"`
	Breaker    resilience.Config `mapstructure:"breaker"`
}

// ActionConfig controls what happens when a target turns stable and how
// often it may be clicked.
type ActionConfig struct {
	MoveCursor    bool          `mapstructure:"move_cursor"`
	ClickCooldown time.Duration `mapstructure:"click_cooldown"`
	Beep          bool          `mapstructure:"beep"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: "127.0.0.1:8765", RateLimit: 10, RateWindow: time.Second},
		Log:  LogConfig{Level: "info", Format: "text"},
		Capture: CaptureConfig{
			FPS:          screen.DefaultFPS,
			Backend:      screen.BackendScreenshot,
			HashDistance: screen.DefaultHashDistance,
		},
		Tracker: stability.DefaultConfig(),
		Recognizer: RecognizerConfig{
			Backend:    BackendTesseract,
			Addr:       "127.0.0.1:50051",
			Listen:     ":50051",
			Languages:  []string{"eng"},
			Targets:    append([]string(nil), recognize.DefaultTargets...),
			Timeout:    recognize.DefaultTimeout,
			Preprocess: true,
			Breaker:    resilience.DefaultConfig(),
		},
		Action: ActionConfig{
			MoveCursor:    true,
			ClickCooldown: time.Second,
			Beep:          true,
		},
		Scroll: scroll.DefaultConfig(),
	}
}

// SetDefaults registers every default on v so environment overrides work
// without a config file.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.rate_limit", d.HTTP.RateLimit)
	v.SetDefault("http.rate_window", d.HTTP.RateWindow)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("capture.fps", d.Capture.FPS)
	v.SetDefault("capture.backend", d.Capture.Backend)
	v.SetDefault("capture.region.x", 0)
	v.SetDefault("capture.region.y", 0)
	v.SetDefault("capture.region.width", 0)
	v.SetDefault("capture.region.height", 0)
	v.SetDefault("capture.hash_distance", d.Capture.HashDistance)

	v.SetDefault("tracker.required_frames", d.Tracker.RequiredFrames)
	v.SetDefault("tracker.position_tolerance", d.Tracker.PositionTolerance)
	v.SetDefault("tracker.size_tolerance", d.Tracker.SizeTolerance)

	v.SetDefault("recognizer.backend", d.Recognizer.Backend)
	v.SetDefault("recognizer.addr", d.Recognizer.Addr)
	v.SetDefault("recognizer.listen", d.Recognizer.Listen)
	v.SetDefault("recognizer.languages", d.Recognizer.Languages)
	v.SetDefault("recognizer.targets", d.Recognizer.Targets)
	v.SetDefault("recognizer.timeout", d.Recognizer.Timeout)
	v.SetDefault("recognizer.preprocess", d.Recognizer.Preprocess)
	v.SetDefault("recognizer.breaker.threshold", d.Recognizer.Breaker.Threshold)
	v.SetDefault("recognizer.breaker.cooldown", d.Recognizer.Breaker.Cooldown)
	v.SetDefault("recognizer.breaker.half_open_successes", d.Recognizer.Breaker.HalfOpenSuccesses)

	v.SetDefault("action.move_cursor", d.Action.MoveCursor)
	v.SetDefault("action.click_cooldown", d.Action.ClickCooldown)
	v.SetDefault("action.beep", d.Action.Beep)

	v.SetDefault("scroll.max_steps", d.Scroll.MaxSteps)
	v.SetDefault("scroll.settle", d.Scroll.Settle)
}

// New returns a viper instance with defaults and environment binding. A
// non-empty path names the config file; otherwise confirmscout.yaml is looked
// up in the working directory and ~/.config/confirmscout. A missing file is
// not an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("confirmscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/confirmscout")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "read config")
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "decode config")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, apperrors.Wrap(ValidationErrors(errs), apperrors.ConfigInvalid, "invalid config")
	}
	return &cfg, nil
}

// Watch reloads the file on change and hands each valid result to fn. Invalid
// edits are logged and ignored.
func Watch(v *viper.Viper, fn func(*Config)) {
	if v.ConfigFileUsed() == "" {
		slog.Debug("no config file, live reload disabled")
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(v)
		if err != nil {
			slog.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name)
		fn(cfg)
	})
	v.WatchConfig()
}

// ParseLevel maps a log level name to slog.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
