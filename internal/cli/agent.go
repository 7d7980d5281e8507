package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/fleet"
	"github.com/tOgg1/geoforce/internal/models"
)

var (
	agentName   string
	agentStatus string
)

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentListCmd)
	agentCmd.AddCommand(agentAddCmd)
	agentCmd.AddCommand(agentEditCmd)
	agentCmd.AddCommand(agentRemoveCmd)

	agentAddCmd.Flags().StringVar(&agentName, "name", "", "agent name (required)")
	agentAddCmd.Flags().StringVar(&agentStatus, "status", string(models.AgentStatusOnline), "initial status (ONLINE, ON_DUTY, OFFLINE)")
	agentEditCmd.Flags().StringVar(&agentName, "name", "", "new name")
	agentEditCmd.Flags().StringVar(&agentStatus, "status", "", "new status")
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage field agents",
}

var agentListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List agents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			agents := a.Fleet.ListAgents()
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return WriteJSON(out, agents)
			}
			rows := make([][]string, 0, len(agents))
			for _, agent := range agents {
				rows = append(rows, []string{
					agent.ID,
					agent.Name,
					agentStatusCell(out, agent.Status),
					strconv.Itoa(agent.BatteryLevel) + "%",
					formatCoords(agent.LastLocation),
					strconv.Itoa(len(agent.RouteHistory)),
				})
			}
			return writeTable(out, []string{"ID", "NAME", "STATUS", "BATTERY", "LOCATION", "TRAIL"}, rows)
		})
	},
}

var agentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := parseAgentStatus(agentStatus)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			agent, err := a.Fleet.CreateAgent(ctx, agentName, status)
			if err != nil {
				return err
			}
			return printAgent(cmd, agent)
		})
	},
}

var agentEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an agent's name or status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var edit fleet.AgentEdit
		if cmd.Flags().Changed("name") {
			edit.Name = &agentName
		}
		if cmd.Flags().Changed("status") {
			status, err := parseAgentStatus(agentStatus)
			if err != nil {
				return err
			}
			edit.Status = &status
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			agent, err := a.Fleet.EditAgent(ctx, args[0], edit)
			if err != nil {
				return err
			}
			if agent == nil {
				return fmt.Errorf("%w: %s", models.ErrAgentNotFound, args[0])
			}
			return printAgent(cmd, agent)
		})
	},
}

var agentRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove an agent and its tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			removed := len(a.Tasks.ListTasks(args[0]))
			if !a.Fleet.DeleteAgent(ctx, args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "No agent %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed agent %s and %d task(s)\n", args[0], removed)
			return nil
		})
	},
}

func parseAgentStatus(value string) (models.AgentStatus, error) {
	if value == "" {
		return models.AgentStatusOnline, nil
	}
	status := models.AgentStatus(strings.ToUpper(value))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidAgentStatus, value)
	}
	return status, nil
}

func printAgent(cmd *cobra.Command, agent *models.Agent) error {
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return WriteJSON(out, agent)
	}
	fmt.Fprintf(out, "%s  %s  %s  %s\n", agent.ID, agent.Name, agentStatusCell(out, agent.Status), formatCoords(agent.LastLocation))
	return nil
}
