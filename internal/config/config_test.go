package config

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
)

func load(t *testing.T, path string) *Config {
	t.Helper()
	v, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := load(t, "")

	if cfg.HTTP.Addr != "127.0.0.1:8765" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, "127.0.0.1:8765")
	}
	if cfg.Capture.FPS != 2 {
		t.Errorf("Capture.FPS = %d, want 2", cfg.Capture.FPS)
	}
	if cfg.Tracker.RequiredFrames != 2 {
		t.Errorf("Tracker.RequiredFrames = %d, want 2", cfg.Tracker.RequiredFrames)
	}
	if cfg.Tracker.PositionTolerance != 10 || cfg.Tracker.SizeTolerance != 15 {
		t.Errorf("tolerances = %v/%v, want 10/15", cfg.Tracker.PositionTolerance, cfg.Tracker.SizeTolerance)
	}
	if cfg.Recognizer.Backend != BackendTesseract {
		t.Errorf("Recognizer.Backend = %q, want %q", cfg.Recognizer.Backend, BackendTesseract)
	}
	if strings.Join(cfg.Recognizer.Targets, ",") != "Confirm,Continue,Approve" {
		t.Errorf("Recognizer.Targets = %v", cfg.Recognizer.Targets)
	}
	if cfg.Action.ClickCooldown != time.Second {
		t.Errorf("Action.ClickCooldown = %v, want 1s", cfg.Action.ClickCooldown)
	}
	if !cfg.Action.MoveCursor || !cfg.Action.Beep {
		t.Error("MoveCursor and Beep should default to true")
	}
	if cfg.Scroll.MaxSteps != 30 || cfg.Scroll.Settle != 500*time.Millisecond {
		t.Errorf("Scroll = %+v, want 30 steps / 500ms", cfg.Scroll)
	}
	if cfg.Recognizer.Breaker.Threshold != 5 {
		t.Errorf("Breaker.Threshold = %d, want 5", cfg.Recognizer.Breaker.Threshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIRMSCOUT_CAPTURE_FPS", "5")
	t.Setenv("CONFIRMSCOUT_TRACKER_REQUIRED_FRAMES", "3")
	t.Setenv("CONFIRMSCOUT_RECOGNIZER_BACKEND", "grpc")
	t.Setenv("CONFIRMSCOUT_RECOGNIZER_TIMEOUT", "750ms")
	t.Setenv("CONFIRMSCOUT_ACTION_MOVE_CURSOR", "false")

	cfg := load(t, "")

	if cfg.Capture.FPS != 5 {
		t.Errorf("Capture.FPS = %d, want 5", cfg.Capture.FPS)
	}
	if cfg.Tracker.RequiredFrames != 3 {
		t.Errorf("Tracker.RequiredFrames = %d, want 3", cfg.Tracker.RequiredFrames)
	}
	if cfg.Recognizer.Backend != BackendGRPC {
		t.Errorf("Recognizer.Backend = %q, want grpc", cfg.Recognizer.Backend)
	}
	if cfg.Recognizer.Timeout != 750*time.Millisecond {
		t.Errorf("Recognizer.Timeout = %v, want 750ms", cfg.Recognizer.Timeout)
	}
	if cfg.Action.MoveCursor {
		t.Error("MoveCursor should be false")
	}
}

const sampleYAML = `
capture:
  fps: 4
  region:
    x: 10
    y: 20
    width: 640
    height: 480
tracker:
  position_tolerance: 12.5
recognizer:
  targets: [Install, Next]
scroll:
  settle: 250ms
`

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confirmscout.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := load(t, path)

	if cfg.Capture.FPS != 4 {
		t.Errorf("Capture.FPS = %d, want 4", cfg.Capture.FPS)
	}
	if r := cfg.Capture.Region; r.X != 10 || r.Y != 20 || r.Width != 640 || r.Height != 480 {
		t.Errorf("Capture.Region = %+v", r)
	}
	if cfg.Tracker.PositionTolerance != 12.5 {
		t.Errorf("PositionTolerance = %v, want 12.5", cfg.Tracker.PositionTolerance)
	}
	if cfg.Tracker.SizeTolerance != 15 {
		t.Errorf("SizeTolerance = %v, want default 15", cfg.Tracker.SizeTolerance)
	}
	if strings.Join(cfg.Recognizer.Targets, ",") != "Install,Next" {
		t.Errorf("Targets = %v", cfg.Recognizer.Targets)
	}
	if cfg.Scroll.Settle != 250*time.Millisecond {
		t.Errorf("Scroll.Settle = %v, want 250ms", cfg.Scroll.Settle)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
	if !apperrors.IsCode(err, apperrors.ConfigInvalid) {
		t.Errorf("New() error = %v, want ConfigInvalid", err)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIRMSCOUT_CAPTURE_FPS", "0")
	t.Setenv("CONFIRMSCOUT_RECOGNIZER_BACKEND", "paddle")

	v, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Load(v)
	if !apperrors.IsCode(err, apperrors.ConfigInvalid) {
		t.Fatalf("Load() error = %v, want ConfigInvalid", err)
	}
	msg := err.Error()
	for _, want := range []string{"capture.fps", "recognizer.backend", "2 validation errors"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %q", msg, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults", func(*Config) {}, ""},
		{"fps too high", func(c *Config) { c.Capture.FPS = 100 }, "capture.fps"},
		{"bad capture backend", func(c *Config) { c.Capture.Backend = "x11" }, "capture.backend"},
		{"hash distance", func(c *Config) { c.Capture.HashDistance = 65 }, "capture.hash_distance"},
		{"hash disabled", func(c *Config) { c.Capture.HashDistance = -1 }, ""},
		{"required frames", func(c *Config) { c.Tracker.RequiredFrames = 0 }, "tracker.required_frames"},
		{"grpc without addr", func(c *Config) { c.Recognizer.Backend = BackendGRPC; c.Recognizer.Addr = "" }, "recognizer.addr"},
		{"no targets", func(c *Config) { c.Recognizer.Targets = nil }, "recognizer.targets"},
		{"negative cooldown", func(c *Config) { c.Action.ClickCooldown = -time.Second }, "action.click_cooldown"},
		{"no steps", func(c *Config) { c.Scroll.MaxSteps = 0 }, "scroll.max_steps"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"upper-case level", func(c *Config) { c.Log.Level = "DEBUG" }, ""},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		errs := cfg.Validate()
		if tt.field == "" {
			if len(errs) != 0 {
				t.Errorf("%s: Validate() = %v, want none", tt.name, errs)
			}
			continue
		}
		if len(errs) != 1 || errs[0].Field != tt.field {
			t.Errorf("%s: Validate() = %v, want one error on %s", tt.name, errs, tt.field)
		}
	}
}

func TestValidationErrorsString(t *testing.T) {
	if ValidationErrors(nil).Error() != "" {
		t.Error("empty ValidationErrors should render empty")
	}
	one := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if got := one.Error(); got != "a: bad (got: 1)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confirmscout.yaml")
	if err := os.WriteFile(path, []byte("tracker:\n  required_frames: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan *Config, 4)
	Watch(v, func(c *Config) { got <- c })

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("tracker:\n  required_frames: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Tracker.RequiredFrames == 4 {
				return
			}
		case <-timeout:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatchWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	v, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	// Must not panic or start a watcher.
	Watch(v, func(*Config) { t.Error("unexpected reload") })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"WARN", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in).String(); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestExportedTypesDocumented(t *testing.T) {
	fset := token.NewFileSet()
	for _, name := range []string{"config.go", "validator.go"} {
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				if !ts.Name.IsExported() {
					continue
				}
				if gd.Doc == nil && ts.Doc == nil {
					t.Errorf("%s: type %s has no doc comment", name, ts.Name.Name)
				}
			}
		}
	}
}
