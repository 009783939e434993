// ConfirmScout watches a window for confirmation buttons and clicks them on
// request.
package main

import (
	"os"

	"github.com/GriffinCanCode/confirmscout/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
