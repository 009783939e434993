package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confirmscout/internal/recognize"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
)

const checkTimeout = 10 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the recognizer and, with --window, read one frame",
	Long: `Check probes the configured recognizer. Given a window it also captures a
single frame of it and prints every target the recognizer finds, which is a
quick way to tune recognizer.targets and the capture settings.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringP("window", "w", "", "window to read (pid or title substring)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	rec, closer, err := newRecognizer(cfg.Recognizer)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if err := recognize.Probe(ctx, rec); err != nil {
		return err
	}
	fmt.Fprintf(out, "recognizer %s: ok\n", cfg.Recognizer.Backend)

	window, _ := cmd.Flags().GetString("window")
	if window == "" && cfg.Capture.Region.Empty() {
		return nil
	}

	locator := newLocator(cfg.Capture)
	list, err := locator.List()
	if err != nil {
		return err
	}
	t, err := pickTarget(list, window)
	if err != nil {
		return err
	}
	region, err := locator.Bounds(t)
	if err != nil {
		return err
	}

	capturer, err := screen.NewCapturer(cfg.Capture.Backend)
	if err != nil {
		return err
	}
	defer func() { _ = capturer.Close() }()

	img, err := capturer.Capture(region)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "captured %s at %s\n", t, region)

	obs, err := rec.Recognize(ctx, screen.Frame{Seq: 1, Image: img, Region: region, CapturedAt: time.Now()})
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		fmt.Fprintln(out, "no targets found")
		return nil
	}
	for _, o := range obs {
		p := region.ToScreen(o.Box.Center())
		fmt.Fprintf(out, "  %-12q conf %.2f box %s screen (%d, %d)\n", o.Text, o.Confidence, o.Box, p.X, p.Y)
	}
	return nil
}
