package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/models"
)

var dutyDuration time.Duration

func init() {
	rootCmd.AddCommand(dutyCmd)
	dutyCmd.Flags().DurationVar(&dutyDuration, "duration", 30*time.Second, "how long to stay on duty (0 waits for Ctrl+C)")
}

var dutyCmd = &cobra.Command{
	Use:   "duty",
	Short: "Go on duty as the signed-in agent and stream positions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := currentSession(ctx, a)
		if err != nil {
			return err
		}
		if sess.Role != models.RoleAgent {
			return fmt.Errorf("duty requires the agent role (run: geoforce login agent)")
		}

		c := newConsole(a, sess.Profile)
		defer c.Close()
		if _, err := c.ToggleDuty(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s is on duty with %d active task(s)\n", sess.Profile.Name, len(c.ActiveTasks()))

		var timeout <-chan time.Time
		if dutyDuration > 0 {
			timer := time.NewTimer(dutyDuration)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-ctx.Done():
		case <-timeout:
		}

		if _, err := c.ToggleDuty(commandContext(cmd)); err != nil {
			return err
		}
		agent, err := a.Fleet.GetAgent(c.AgentID())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Off duty at %s after %d recorded position(s)\n", formatCoords(agent.LastLocation), len(agent.RouteHistory))
		if geoErr := c.LastError(); geoErr != nil {
			fmt.Fprintf(out, "Warning: last geolocation error: %v\n", geoErr)
		}
		return nil
	},
}
