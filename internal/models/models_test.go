package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentAppendLocationBoundsHistory(t *testing.T) {
	agent := &Agent{ID: "1", Name: "John Doe", Status: AgentStatusOnline}
	base := time.Date(2025, 10, 24, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 75; i++ {
		agent.AppendLocation(Location{Lat: float64(i), Lng: -float64(i), Timestamp: base.Add(time.Duration(i) * time.Second)}, 50)
	}

	require.Len(t, agent.RouteHistory, 50)
	assert.Equal(t, 25.0, agent.RouteHistory[0].Lat, "oldest entries are evicted first")
	require.NotNil(t, agent.LastLocation)
	assert.Equal(t, agent.RouteHistory[49], *agent.LastLocation)
	assert.Equal(t, base.Add(74*time.Second), agent.LastUpdated)
}

func TestAgentCloneIsDeep(t *testing.T) {
	agent := &Agent{
		ID:           "1",
		LastLocation: &Location{Lat: 1, Lng: 2},
		RouteHistory: []Location{{Lat: 1, Lng: 2}},
	}
	clone := agent.Clone()
	clone.LastLocation.Lat = 99
	clone.RouteHistory[0].Lat = 99

	assert.Equal(t, 1.0, agent.LastLocation.Lat)
	assert.Equal(t, 1.0, agent.RouteHistory[0].Lat)
}

func TestAgentPatchLeavesAbsentFields(t *testing.T) {
	agent := &Agent{ID: "1", Name: "John Doe", Status: AgentStatusOnline, BatteryLevel: 82}
	status := AgentStatusOffline
	AgentPatch{Status: &status}.Apply(agent)

	assert.Equal(t, "John Doe", agent.Name)
	assert.Equal(t, AgentStatusOffline, agent.Status)
	assert.Equal(t, 82, agent.BatteryLevel)
}

func TestTaskPatchAddressKeepsCoordinates(t *testing.T) {
	task := &Task{ID: "t1", Location: TaskLocation{Lat: 40.71, Lng: -74, Address: "Wall St, NY"}}
	address := "Broadway, NY"
	TaskPatch{Address: &address}.Apply(task)

	assert.Equal(t, TaskLocation{Lat: 40.71, Lng: -74, Address: "Broadway, NY"}, task.Location)
}

func TestParseStatuses(t *testing.T) {
	status, err := ParseAgentStatus("on-duty")
	require.NoError(t, err)
	assert.Equal(t, AgentStatusOnDuty, status)

	_, err = ParseAgentStatus("asleep")
	assert.ErrorIs(t, err, ErrInvalidAgentStatus)

	taskStatus, err := ParseTaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, taskStatus)
	assert.True(t, TaskStatusFailed.Valid())
	assert.True(t, TaskStatusFailed.Terminal())

	role, err := ParseRole("agent")
	require.NoError(t, err)
	assert.Equal(t, RoleAgent, role)
	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestTransitionErrorMatching(t *testing.T) {
	var err error = &TransitionError{TaskID: "t1", From: TaskStatusPending, Action: "complete"}
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrTaskNotFound))

	err = &TransitionError{TaskID: "nope", Action: "start", Missing: true}
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.True(t, errors.Is(err, ErrTaskNotFound))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResourceAndPersistenceErrors(t *testing.T) {
	denied := errors.New("permission denied")
	err := &ResourceError{Resource: "camera", Err: denied}
	assert.ErrorIs(t, err, ErrResourceAccess)
	assert.ErrorIs(t, err, denied)

	perr := &PersistenceError{Op: "write", Key: "gf_agents", Err: errors.New("quota exceeded")}
	assert.ErrorIs(t, perr, ErrPersistence)
	assert.Contains(t, perr.Error(), "gf_agents")
}

func TestSeedData(t *testing.T) {
	now := time.Date(2025, 10, 24, 9, 0, 0, 0, time.UTC)
	agents := SeedAgents(now)
	require.Len(t, agents, 3)
	assert.Equal(t, []AgentStatus{AgentStatusOnline, AgentStatusOnDuty, AgentStatusOffline},
		[]AgentStatus{agents[0].Status, agents[1].Status, agents[2].Status})
	assert.Equal(t, []int{82, 45, 12}, []int{agents[0].BatteryLevel, agents[1].BatteryLevel, agents[2].BatteryLevel})
	for _, a := range agents {
		require.NoError(t, a.Validate())
		assert.Empty(t, a.RouteHistory)
	}

	tasks := SeedTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, TaskStatusPending, tasks[0].Status)
	assert.Equal(t, TaskStatusInProgress, tasks[1].Status)
}
