package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/store"
)

var now = time.Date(2025, 10, 24, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New(store.WithClock(func() time.Time { return now }))
	st.Replace(context.Background(), models.SeedAgents(now.Add(-time.Hour)), models.SeedTasks())
	return NewService(st, models.Coordinates{}, 3), st
}

func ptr[T any](v T) *T { return &v }

func TestCreateAgent(t *testing.T) {
	svc, st := newService(t)

	agent, err := svc.CreateAgent(context.Background(), "Louis Litt", models.AgentStatusOffline)
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, 100, agent.BatteryLevel)
	assert.Equal(t, models.AgentStatusOffline, agent.Status)
	require.NotNil(t, agent.LastLocation)
	assert.Equal(t, models.Location{Lat: 40.7128, Lng: -74.0060, Timestamp: now}, *agent.LastLocation)
	assert.Empty(t, agent.RouteHistory)
	assert.Len(t, st.ListAgents(), 4)
}

func TestCreateAgentValidation(t *testing.T) {
	svc, st := newService(t)

	_, err := svc.CreateAgent(context.Background(), "  ", models.AgentStatusOnline)
	assert.ErrorIs(t, err, models.ErrAgentNameRequired)

	_, err = svc.CreateAgent(context.Background(), "Donna", models.AgentStatus("AWAY"))
	assert.ErrorIs(t, err, models.ErrInvalidAgentStatus)
	assert.Len(t, st.ListAgents(), 3)
}

func TestCreateAgentWithIDRejectsDuplicate(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateAgentWithID(context.Background(), "1", "Dup", models.AgentStatusOnline)
	assert.Error(t, err)
}

func TestEditAgent(t *testing.T) {
	svc, _ := newService(t)

	agent, err := svc.EditAgent(context.Background(), "1", AgentEdit{Status: ptr(models.AgentStatusOnDuty)})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", agent.Name)
	assert.Equal(t, models.AgentStatusOnDuty, agent.Status)
	assert.Equal(t, 82, agent.BatteryLevel)
	assert.Equal(t, now, agent.LastUpdated)

	agent, err = svc.EditAgent(context.Background(), "missing", AgentEdit{Name: ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, agent)
}

func TestDeleteAgentCascades(t *testing.T) {
	svc, st := newService(t)
	assert.True(t, svc.DeleteAgent(context.Background(), "2"))
	assert.False(t, svc.DeleteAgent(context.Background(), "2"))

	tasks := st.ListTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestRecordFixKeepsHistoryBound(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, svc.RecordFix(ctx, "3", models.Location{Lat: float64(i), Lng: float64(-i)}))
	}

	agent, _ := st.GetAgent("3")
	require.Len(t, agent.RouteHistory, 3)
	assert.Equal(t, 2.0, agent.RouteHistory[0].Lat)
	assert.Equal(t, agent.RouteHistory[2], *agent.LastLocation)
	assert.Equal(t, now, agent.LastLocation.Timestamp)

	err := svc.RecordFix(ctx, "ghost", models.Location{})
	assert.ErrorIs(t, err, models.ErrAgentNotFound)
}

func TestGetAgent(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetAgent("nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
