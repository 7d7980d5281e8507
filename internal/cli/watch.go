package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/dashboard"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !hasTTY() {
			return errors.New("watch requires an interactive terminal (use report or agent ls instead)")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.StartTelemetry(ctx); err != nil {
				return err
			}
			return dashboard.Run(a.Store, a.Generator, a.Tasks, dashboard.Config{
				RefreshInterval: a.Config.TUI.RefreshInterval,
			})
		})
	},
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
