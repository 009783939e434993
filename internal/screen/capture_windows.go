//go:build windows

package screen

import (
	"context"
	"errors"
	"os/exec"
)

// Windows has no stock CLI screenshot tool; use the screenshot backend.
func screenshotCommand(context.Context, string) (*exec.Cmd, error) {
	return nil, errors.New("exec capture is not supported on windows")
}
