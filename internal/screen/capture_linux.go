//go:build linux

package screen

import (
	"context"
	"errors"
	"os/exec"
)

// screenshotCommand prefers gnome-screenshot and falls back to scrot.
func screenshotCommand(ctx context.Context, path string) (*exec.Cmd, error) {
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		return exec.CommandContext(ctx, "gnome-screenshot", "-f", path), nil
	}
	if _, err := exec.LookPath("scrot"); err == nil {
		return exec.CommandContext(ctx, "scrot", "-o", path), nil
	}
	return nil, errors.New("install gnome-screenshot or scrot")
}
