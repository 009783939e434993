package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confirmscout/internal/activity"
	"github.com/GriffinCanCode/confirmscout/internal/config"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a window without the server and print what becomes stable",
	Long: `Watch runs a monitoring session in the foreground and prints each stable
detection and activity line. It never clicks; use serve for that.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("window", "w", "", "window to watch (pid or title substring)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	config.Watch(v, func(c *config.Config) { a.mgr.Reconfigure(monitorConfig(c)) })
	probe(ctx, a.rec)

	window, _ := cmd.Flags().GetString("window")
	t, err := selectWindow(a.mgr, window)
	if err != nil {
		return err
	}
	if err := a.mgr.Start(ctx); err != nil {
		return err
	}
	slog.Info("watching", "target", t.String(), "fps", cfg.Capture.FPS)

	follow(ctx, a.mgr, cmd.OutOrStdout())
	return nil
}

// session is the part of the monitor that watch reads.
type session interface {
	Events() <-chan monitor.Event
	Activity() *activity.Log
	Monitoring() bool
}

// follow prints events and activity lines until ctx ends or the session stops.
// Status events queued before Start carry Monitoring=false, so the end of the
// session is read from the manager rather than from the event.
func follow(ctx context.Context, s session, out io.Writer) {
	events := s.Events()
	lines := s.Activity().Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			printEvent(out, ev)
			if ev.Type == monitor.EventStatus && !s.Monitoring() {
				return
			}
		case e := <-lines:
			fmt.Fprintln(out, e.String())
		}
	}
}

func printEvent(w io.Writer, ev monitor.Event) {
	switch ev.Type {
	case monitor.EventStable:
		d := ev.Detection
		fmt.Fprintf(w, "%s  stable %q at (%d, %d) conf %.2f box %s\n",
			d.At.Format("15:04:05"), d.Text, d.ScreenX, d.ScreenY, d.Confidence, d.Box)
	case monitor.EventScroll:
		fmt.Fprintf(w, "scroll %s %d/%d\n", ev.Scroll.State, ev.Scroll.Step, ev.Scroll.Max)
	case monitor.EventStatus:
		if s := ev.Status; s != nil {
			fmt.Fprintf(w, "status monitoring=%t tracked=%d frames=%d\n", s.Monitoring, len(s.Tracked), s.Frames)
		}
	}
}
