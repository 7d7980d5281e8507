package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/persist"
	"github.com/tOgg1/geoforce/internal/report"
)

var exportFormat string

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, yaml)")
}

// Report is the payload of `geoforce report --json`.
type Report struct {
	Summary report.Summary     `json:"summary"`
	Agents  []report.AgentStat `json:"agents"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show task completion and agent activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			agents, tasks := a.Store.Snapshot()
			r := Report{
				Summary: report.Summarize(agents, tasks),
				Agents:  report.AgentStats(agents, tasks),
			}
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return WriteJSON(out, r)
			}

			s := r.Summary
			fmt.Fprintf(out, "Agents: %d (%d on duty, %d offline)\n", s.Agents, s.AgentsOnDuty, s.AgentsOffline)
			fmt.Fprintf(out, "Tasks:  %d (pending %d, in progress %d, completed %d)\n", s.Tasks, s.Pending, s.InProgress, s.Completed)
			fmt.Fprintf(out, "Completion rate: %d%%\n\n", s.CompletionRate)

			rows := make([][]string, 0, len(r.Agents))
			for _, st := range r.Agents {
				rows = append(rows, []string{
					st.AgentID,
					st.Name,
					agentStatusCell(out, st.Status),
					strconv.Itoa(st.BatteryLevel) + "%",
					fmt.Sprintf("%d/%d", st.TasksCompleted, st.TasksAssigned),
					fmt.Sprintf("%.2f km", st.DistanceKm),
				})
			}
			return writeTable(out, []string{"ID", "NAME", "STATUS", "BATTERY", "DONE", "ROUTE"}, rows)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export agents and tasks",
	Long:  "Export the full agent and task collections as JSON or YAML. The output can be used as persistence.seed_file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFormat != "json" && exportFormat != "yaml" {
			return fmt.Errorf("unsupported format %q (json, yaml)", exportFormat)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			agents, tasks := a.Store.Snapshot()
			snapshot := persist.Snapshot{Agents: agents, Tasks: tasks}
			encode := snapshot.EncodeJSON
			if exportFormat == "yaml" {
				encode = snapshot.EncodeYAML
			}
			data, err := encode()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(data); err != nil {
				return err
			}
			if exportFormat == "json" {
				fmt.Fprintln(out)
			}
			return nil
		})
	},
}
