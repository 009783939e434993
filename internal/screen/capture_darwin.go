//go:build darwin

package screen

import (
	"context"
	"os/exec"
)

// screenshotCommand: -x silent, -m main display only.
func screenshotCommand(ctx context.Context, path string) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-m", path), nil
}
