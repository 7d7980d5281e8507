package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/models"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:       "login admin|agent",
	Short:     "Sign in with a demo role",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"admin", "agent"},
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := models.ParseRole(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, err := a.Sessions.Login(ctx, role)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return WriteJSON(cmd.OutOrStdout(), sess)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", sess.Profile.Name, sess.Role)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Sessions.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, err := a.Sessions.Current(ctx)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return WriteJSON(cmd.OutOrStdout(), sess)
			}
			if sess == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, id %s)\n", sess.Profile.Name, sess.Role, sess.Profile.ID)
			return nil
		})
	},
}

// currentSession returns the session or an error telling the user to log in.
func currentSession(ctx context.Context, a *app.App) (*models.Session, error) {
	sess, err := a.Sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("not signed in (run: geoforce login admin|agent)")
	}
	return sess, nil
}
