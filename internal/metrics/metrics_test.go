package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/events"
	"github.com/tOgg1/geoforce/internal/models"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.ObserveTick(2)
	m.ObserveTick(0)
	m.ObserveTransition(models.TaskStatusInProgress)
	m.ObservePersistenceFailure("write")

	body := scrape(t, m)
	assert.Contains(t, body, "geoforce_telemetry_ticks_total 2")
	assert.Contains(t, body, "geoforce_telemetry_agents_moved_total 2")
	assert.Contains(t, body, `geoforce_task_transitions_total{to="IN_PROGRESS"} 1`)
	assert.Contains(t, body, `geoforce_persistence_failures_total{op="write"} 1`)
}

func TestMetricsAttachCountsCommits(t *testing.T) {
	m := New()
	pub := events.NewInMemoryPublisher()
	require.NoError(t, m.Attach(pub))

	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeTaskCreated, EntityType: models.EntityTypeTask})
	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeStoreCommitted, EntityType: models.EntityTypeStore, Changes: 3})

	body := scrape(t, m)
	assert.Contains(t, body, "geoforce_store_commits_total 1")
	assert.Contains(t, body, "geoforce_store_changes_total 3")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveTick(1)
	m.ObserveTransition(models.TaskStatusCompleted)
	m.ObserveCommit(1)
	m.ObservePersistenceFailure("read")
	require.NoError(t, m.Attach(events.NewInMemoryPublisher()))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
