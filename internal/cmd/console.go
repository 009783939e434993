package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confirmscout/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the terminal console of a running server",
	Long: `Console connects to the websocket of a running "confirmscout serve" and shows
its status, the latest stable detection and the activity log.

Keys: enter click, s scroll search, esc cancel scroll, m start/stop, q quit.`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().String("addr", "", "server address (default http.addr)")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr := cfg.HTTP.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}
	return console.Run(cmd.Context(), addr)
}
