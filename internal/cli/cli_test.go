package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
)

type harness struct {
	t       *testing.T
	dataDir string
}

func newHarness(t *testing.T) *harness {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, dataDir: filepath.Join(home, "data")}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)
	appConfig = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", h.dataDir, "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) task(args ...string) *models.Task {
	h.t.Helper()
	var task models.Task
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun(append([]string{"--json", "task"}, args...)...)), &task))
	return &task
}

func TestSessionCommands(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("whoami"), "Not signed in")
	assert.Contains(t, h.mustRun("login", "agent"), "Signed in as Alex Field (AGENT)")
	assert.Contains(t, h.mustRun("whoami"), "Alex Field (AGENT, id agent1)")

	_, err := h.run("login", "guest")
	assert.ErrorIs(t, err, models.ErrInvalidRole)

	h.mustRun("logout")
	assert.Contains(t, h.mustRun("whoami"), "Not signed in")
}

func TestAgentCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("agent", "ls")
	assert.Contains(t, out, "John Doe")
	assert.Contains(t, out, "OFFLINE")

	var agent models.Agent
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "agent", "add", "--name", "Dana Scout")), &agent))
	assert.Equal(t, models.AgentStatusOnline, agent.Status)
	assert.Equal(t, 100, agent.BatteryLevel)

	_, err := h.run("agent", "add")
	assert.ErrorIs(t, err, models.ErrValidation)

	out = h.mustRun("agent", "edit", agent.ID, "--status", "on_duty")
	assert.Contains(t, out, "ON_DUTY")
	assert.Contains(t, out, "Dana Scout")

	_, err = h.run("agent", "edit", "ghost", "--name", "x")
	assert.ErrorIs(t, err, models.ErrAgentNotFound)

	assert.Contains(t, h.mustRun("agent", "rm", "1"), "Removed agent 1 and 1 task(s)")
	assert.Contains(t, h.mustRun("agent", "rm", "1"), "No agent 1")
	assert.NotContains(t, h.mustRun("task", "ls"), "Deliver Package #402")
}

func TestTaskLifecycleCommands(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("task", "create", "--agent", "1", "--desc", "d", "--address", "a")
	assert.ErrorIs(t, err, models.ErrValidation)

	created := h.task("create", "--title", "Meter Reading", "--agent", "1", "--desc", "Read meter 12", "--address", "5th Ave, NY", "--lat", "40.75", "--lng", "-73.99")
	assert.Equal(t, models.TaskStatusPending, created.Status)
	assert.Equal(t, 40.75, created.Location.Lat)

	_, err = h.run("task", "complete", created.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	started := h.task("start", created.ID)
	assert.Equal(t, models.TaskStatusInProgress, started.Status)
	assert.NotNil(t, started.CheckInTime)

	edited := h.task("edit", created.ID, "--title", "Meter Reading B")
	assert.Equal(t, "Meter Reading B", edited.Title)
	assert.Equal(t, models.TaskStatusInProgress, edited.Status)

	done := h.task("complete", created.ID)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	assert.True(t, strings.HasPrefix(done.ProofImageURL, "file://"), done.ProofImageURL)
	assert.NotNil(t, done.CheckOutTime)

	_, err = h.run("task", "start", created.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	assert.Contains(t, h.mustRun("task", "rm", created.ID), "Removed task")
	assert.Contains(t, h.mustRun("task", "rm", created.ID), "No task")
}

func TestAgentRoleOnlyTouchesOwnTasks(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login", "agent")

	_, err := h.run("task", "start", "t1")
	assert.ErrorIs(t, err, models.ErrTaskNotFound)

	out := h.mustRun("duty", "--duration", "20ms")
	assert.Contains(t, out, "Alex Field is on duty")
	assert.Contains(t, out, "Off duty at")

	task := h.task("create", "--title", "Check Inventory", "--agent", "agent1", "--desc", "Aisle 4", "--address", "Broadway, NY")
	h.task("start", task.ID)
	done := h.task("complete", task.ID)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
}

func TestSimulateReportExport(t *testing.T) {
	h := newHarness(t)

	var result map[string]int
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "simulate", "--ticks", "3")), &result))
	assert.Equal(t, 6, result["moves"], "agents 1 and 2 move each tick")

	var rep Report
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "report")), &rep))
	assert.Equal(t, 3, rep.Summary.Agents)
	assert.Equal(t, 0, rep.Summary.CompletionRate)
	require.Len(t, rep.Agents, 3)
	assert.Greater(t, rep.Agents[0].DistanceKm, 0.0)
	assert.Zero(t, rep.Agents[2].DistanceKm)

	yamlOut := h.mustRun("export", "--format", "yaml")
	assert.Contains(t, yamlOut, "name: John Doe")
	assert.Contains(t, yamlOut, "title: Site Inspection")

	var snapshot struct {
		Agents []models.Agent `json:"agents"`
		Tasks  []models.Task  `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("export")), &snapshot))
	assert.Len(t, snapshot.Agents, 3)
	assert.Len(t, snapshot.Agents[0].RouteHistory, 3)

	_, err := h.run("export", "--format", "csv")
	assert.Error(t, err)
}

func TestEventsCommand(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("events"), "No events recorded")

	task := h.task("create", "--title", "Meter Reading", "--agent", "1", "--desc", "d", "--address", "a")
	h.task("start", task.ID)
	h.mustRun("simulate", "--ticks", "2")

	out := h.mustRun("events")
	assert.Contains(t, out, "task.created")
	assert.Contains(t, out, "task.updated")
	assert.NotContains(t, out, "agent.updated")

	var list EventList
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "events", "--entity", "task", "--id", task.ID, "--limit", "1")), &list))
	require.Len(t, list.Events, 1)
	assert.Equal(t, models.EventTypeTaskCreated, list.Events[0].Type)
	require.NotEmpty(t, list.NextCursor)

	var rest EventList
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "events", "--id", task.ID, "--cursor", list.NextCursor)), &rest))
	require.Len(t, rest.Events, 1)
	assert.Equal(t, models.EventTypeTaskUpdated, rest.Events[0].Type)
	assert.Empty(t, rest.NextCursor)

	_, err := h.run("events", "--entity", "store")
	assert.Error(t, err)
}
