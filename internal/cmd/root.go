// Package cmd implements the confirmscout command line.
package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GriffinCanCode/confirmscout/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "confirmscout",
	Short: "Watch a window for confirmation buttons and click them on request",
	Long: `ConfirmScout captures a chosen application window, reads the text on it
and tracks candidate buttons such as "Confirm" or "Continue" until they are
stable. Once a button is stable the operator can click it, or let a scroll
search bring one into view.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(loadDotenv)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./confirmscout.yaml or $HOME/.config/confirmscout/confirmscout.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
}

// loadDotenv pulls a .env file into the environment before viper reads it.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", "error", err)
	}
}

// loadConfig reads the config for cmd and installs the logger it asks for.
func loadConfig(cmd *cobra.Command) (*viper.Viper, *config.Config, error) {
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("log.level", f.Value.String())
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	setupLogging(cfg.Log)
	return v, cfg, nil
}

func setupLogging(lc config.LogConfig) {
	opts := &slog.HandlerOptions{Level: config.ParseLevel(lc.Level)}
	var h slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
