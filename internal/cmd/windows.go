package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/target"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List the displays and the windows that can be monitored",
	RunE:  runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
}

func runWindows(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	displays := screen.Displays()
	if err := writeDisplays(out, displays); err != nil {
		return err
	}
	fmt.Fprintln(out)

	locator := newLocator(cfg.Capture)
	list, err := locator.List()
	if err != nil {
		return err
	}
	return writeWindows(out, locator, list, displays)
}

func writeDisplays(w io.Writer, displays []screen.Region) error {
	if len(displays) == 0 {
		fmt.Fprintln(w, "No active displays")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISPLAY\tBOUNDS")
	for i, d := range displays {
		fmt.Fprintf(tw, "%d\t%s\n", i, d)
	}
	return tw.Flush()
}

func writeWindows(w io.Writer, locator target.Locator, list []target.Target, displays []screen.Region) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "No windows found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tTITLE\tBOUNDS")
	for _, t := range list {
		bounds := "-"
		if r, err := locator.Bounds(t); err == nil {
			bounds = r.String()
			if len(displays) > 0 && !onDisplay(r, displays) {
				bounds += " (off-screen)"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.PID, t.Title, bounds)
	}
	return tw.Flush()
}

// onDisplay reports whether any part of r is visible on a display.
func onDisplay(r screen.Region, displays []screen.Region) bool {
	for _, d := range displays {
		if r.Rect().Overlaps(d.Rect()) {
			return true
		}
	}
	return false
}
