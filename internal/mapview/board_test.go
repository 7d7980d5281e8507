package mapview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
)

func seed() ([]*models.Agent, []*models.Task) {
	return models.SeedAgents(time.Date(2025, 10, 24, 9, 0, 0, 0, time.UTC)), models.SeedTasks()
}

func TestSyncPlacesAgentsAndTasks(t *testing.T) {
	board := NewBoard()
	agents, tasks := seed()
	board.Sync(agents, tasks)

	markers := board.Markers()
	require.Len(t, markers, 5)
	ids := make([]string, 0, len(markers))
	for _, m := range markers {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "task-t1", "task-t2"}, ids)

	john, ok := board.Marker("1")
	require.True(t, ok)
	assert.Equal(t, ColorOnline, john.Color)
	jane, _ := board.Marker("2")
	assert.Equal(t, ColorOnDuty, jane.Color)
	mike, _ := board.Marker("3")
	assert.Equal(t, ColorOffline, mike.Color)
	task, _ := board.Marker("task-t1")
	assert.Equal(t, ColorTask, task.Color)
	assert.Equal(t, MarkerTask, task.Kind)
}

func TestSyncRepositionsWithoutDuplicates(t *testing.T) {
	board := NewBoard()
	agents, tasks := seed()
	board.Sync(agents, tasks)

	agents[0].AppendLocation(models.Location{Lat: 40.8, Lng: -73.9}, 50)
	agents[0].Status = models.AgentStatusOnDuty
	board.Sync(agents, tasks)
	board.Sync(agents, tasks)

	assert.Len(t, board.Markers(), 5)
	john, _ := board.Marker("1")
	assert.Equal(t, 40.8, john.Lat)
	assert.Equal(t, ColorOnDuty, john.Color)
}

func TestSyncSkipsUnlocatedAndPrunesGone(t *testing.T) {
	board := NewBoard()
	agents, tasks := seed()
	board.Sync(agents, tasks)

	agents[2].LastLocation = nil
	board.Sync(agents[:2], tasks[:1])

	_, ok := board.Marker("3")
	assert.False(t, ok)
	_, ok = board.Marker("task-t2")
	assert.False(t, ok)
	assert.Len(t, board.Markers(), 3)
}

func TestRender(t *testing.T) {
	board := NewBoard()
	assert.Contains(t, board.Render(40, 10), "no markers")

	agents, tasks := seed()
	board.Sync(agents, tasks)
	out := board.Render(40, 10)
	assert.Contains(t, out, "John Doe")
	assert.Contains(t, out, "Deliver Package #402")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 10+5-1)
}
