//go:build !darwin && !linux && !windows

package screen

import (
	"context"
	"errors"
	"os/exec"
)

func screenshotCommand(context.Context, string) (*exec.Cmd, error) {
	return nil, errors.New("exec capture is not supported on this platform")
}
