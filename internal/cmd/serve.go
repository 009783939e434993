package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confirmscout/internal/config"
	"github.com/GriffinCanCode/confirmscout/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor behind the HTTP and websocket control surface",
	Long: `Serve wires capture, recognition and the mouse into a monitor and exposes it
on http.addr. Use "confirmscout console" or the REST API to select a window,
start monitoring and click.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("window", "w", "", "select this window at startup (pid or title substring)")
	serveCmd.Flags().Bool("start", false, "start monitoring the selected window immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("shutdown", "error", err)
		}
	}()

	config.Watch(v, func(c *config.Config) { a.mgr.Reconfigure(monitorConfig(c)) })
	probe(ctx, a.rec)

	window, _ := cmd.Flags().GetString("window")
	autoStart, _ := cmd.Flags().GetBool("start")
	if window != "" || autoStart {
		t, err := selectWindow(a.mgr, window)
		if err != nil {
			return err
		}
		slog.Info("target selected", "target", t.String())
		if autoStart {
			if err := a.mgr.Start(ctx); err != nil {
				return err
			}
		}
	}

	srv := server.New(ctx, a.mgr, server.Options{
		RateLimit:  cfg.HTTP.RateLimit,
		RateWindow: cfg.HTTP.RateWindow,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("confirmscout serving", "http", cfg.HTTP.Addr, "recognizer", cfg.Recognizer.Backend)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("shutting down...")
	srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}
