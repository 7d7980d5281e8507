package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/console"
	"github.com/tOgg1/geoforce/internal/device"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/tasks"
)

var (
	taskTitle       string
	taskAgent       string
	taskDescription string
	taskAddress     string
	taskLat         float64
	taskLng         float64
	taskPhoto       string
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskRemoveCmd)

	taskListCmd.Flags().StringVar(&taskAgent, "agent", "", "only tasks assigned to this agent")

	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	taskCreateCmd.Flags().StringVar(&taskAgent, "agent", "", "assigned agent id (required)")
	taskCreateCmd.Flags().StringVar(&taskDescription, "desc", "", "description (required)")
	taskCreateCmd.Flags().StringVar(&taskAddress, "address", "", "street address (required)")
	taskCreateCmd.Flags().Float64Var(&taskLat, "lat", 0, "latitude (default: near the reference point)")
	taskCreateCmd.Flags().Float64Var(&taskLng, "lng", 0, "longitude (default: near the reference point)")

	taskEditCmd.Flags().StringVar(&taskTitle, "title", "", "new title")
	taskEditCmd.Flags().StringVar(&taskAgent, "agent", "", "reassign to agent id")
	taskEditCmd.Flags().StringVar(&taskDescription, "desc", "", "new description")
	taskEditCmd.Flags().StringVar(&taskAddress, "address", "", "new address")

	taskCompleteCmd.Flags().StringVar(&taskPhoto, "photo", "", "image file to use as proof (default: simulated camera)")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list := a.Tasks.ListTasks(taskAgent)
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return WriteJSON(out, list)
			}
			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{
					t.ID,
					t.Title,
					t.AgentID,
					taskStatusCell(out, t.Status),
					t.Location.Address,
					fmt.Sprintf("%.4f,%.4f", t.Location.Lat, t.Location.Lng),
				})
			}
			return writeTable(out, []string{"ID", "TITLE", "AGENT", "STATUS", "ADDRESS", "LOCATION"}, rows)
		})
	},
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task for an agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := tasks.CreateTaskInput{
			Title:       taskTitle,
			AgentID:     taskAgent,
			Description: taskDescription,
			Address:     taskAddress,
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			input.Location = &models.Coordinates{Lat: taskLat, Lng: taskLng}
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			task, err := a.Tasks.CreateTask(ctx, input)
			if err != nil {
				return err
			}
			return printTask(cmd, task)
		})
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a task's title, description, address or agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var edit tasks.TaskEdit
		flags := cmd.Flags()
		if flags.Changed("title") {
			edit.Title = &taskTitle
		}
		if flags.Changed("desc") {
			edit.Description = &taskDescription
		}
		if flags.Changed("address") {
			edit.Address = &taskAddress
		}
		if flags.Changed("agent") {
			edit.AgentID = &taskAgent
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			task, err := a.Tasks.EditTask(ctx, args[0], edit)
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("%w: %s", models.ErrTaskNotFound, args[0])
			}
			return printTask(cmd, task)
		})
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Check in to a pending task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, err := a.Sessions.Current(ctx)
			if err != nil {
				return err
			}
			var task *models.Task
			if sess != nil && sess.Role == models.RoleAgent {
				c := newConsole(a, sess.Profile)
				defer c.Close()
				task, err = c.StartVisit(ctx, args[0])
			} else {
				task, err = a.Tasks.StartTask(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return printTask(cmd, task)
		})
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Capture proof and complete an in-progress task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sess, err := a.Sessions.Current(ctx)
			if err != nil {
				return err
			}
			var task *models.Task
			if sess != nil && sess.Role == models.RoleAgent {
				task, err = completeAsAgent(ctx, a, sess.Profile, args[0])
			} else {
				task, err = completeDirect(ctx, a, args[0])
			}
			if err != nil {
				return err
			}
			return printTask(cmd, task)
		})
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !a.Tasks.DeleteTask(ctx, args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "No task %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", args[0])
			return nil
		})
	},
}

func proofCamera() device.Camera {
	if taskPhoto != "" {
		return device.FileCamera{Path: taskPhoto}
	}
	return &device.SimulatedCamera{}
}

func newConsole(a *app.App, profile models.Profile) *console.Console {
	geo := &device.SimulatedGeolocator{
		Origin:   models.AgentReferencePoint,
		Interval: a.Config.Telemetry.Interval,
		MaxStep:  a.Config.Telemetry.MaxStepDegrees,
	}
	return console.New(profile, a.Fleet, a.Tasks, geo, proofCamera())
}

func completeAsAgent(ctx context.Context, a *app.App, profile models.Profile, id string) (*models.Task, error) {
	c := newConsole(a, profile)
	defer c.Close()
	capture, err := c.OpenProofCapture(ctx, id)
	if err != nil {
		return nil, err
	}
	return capture.Capture(ctx)
}

// completeDirect captures one frame and completes the task without the
// ownership checks of the agent console.
func completeDirect(ctx context.Context, a *app.App, id string) (*models.Task, error) {
	task, ok := a.Store.GetTask(id)
	if !ok {
		return nil, &models.TransitionError{TaskID: id, Action: "complete", Missing: true}
	}
	if !tasks.CanTransition(task.Status, models.TaskStatusCompleted) {
		return nil, &models.TransitionError{TaskID: id, From: task.Status, Action: "complete"}
	}

	stream, err := proofCamera().Start(ctx)
	if err != nil {
		return nil, err
	}
	defer stream.Stop()

	frame, err := stream.Capture()
	if err != nil {
		if errors.Is(err, models.ErrResourceAccess) {
			return nil, err
		}
		return nil, &models.ResourceError{Resource: "camera", Err: err}
	}
	return a.Tasks.CompleteTaskWithProof(ctx, id, tasks.Proof{Data: frame.Data, ContentType: frame.ContentType})
}

func printTask(cmd *cobra.Command, task *models.Task) error {
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return WriteJSON(out, task)
	}
	fmt.Fprintf(out, "%s  %s  %s  agent %s  %s\n", task.ID, task.Title, taskStatusCell(out, task.Status), task.AgentID, task.Location.Address)
	if task.ProofImageURL != "" {
		fmt.Fprintf(out, "proof: %s\n", task.ProofImageURL)
	}
	return nil
}
