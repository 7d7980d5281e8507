package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
)

func appendEvent(t *testing.T, repo *EventRepository, typ models.EventType, entity models.EntityType, id string) *models.Event {
	t.Helper()
	event := &models.Event{Type: typ, EntityType: entity, EntityID: id}
	require.NoError(t, repo.Append(context.Background(), event))
	return event
}

func TestEventRepository_AppendAndGet(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	event := appendEvent(t, repo, models.EventTypeTaskCreated, models.EntityTypeTask, "t1")
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	got, err := repo.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeTaskCreated, got.Type)
	assert.Equal(t, models.EntityTypeTask, got.EntityType)
	assert.Equal(t, "t1", got.EntityID)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)

	err = repo.Append(ctx, &models.Event{EntityType: models.EntityTypeTask})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEventRepository_QueryFiltersAndPages(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendEvent(t, repo, models.EventTypeTaskUpdated, models.EntityTypeTask, fmt.Sprintf("t%d", i%2))
	}
	appendEvent(t, repo, models.EventTypeAgentCreated, models.EntityTypeAgent, "a1")

	entity := models.EntityTypeTask
	id := "t0"
	page, err := repo.Query(ctx, EventQuery{EntityType: &entity, EntityID: &id})
	require.NoError(t, err)
	assert.Len(t, page.Events, 3)
	assert.Empty(t, page.NextCursor)

	page, err = repo.Query(ctx, EventQuery{Limit: 4})
	require.NoError(t, err)
	require.Len(t, page.Events, 4)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.Query(ctx, EventQuery{Limit: 4, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Events, 2)
	assert.Equal(t, models.EventTypeAgentCreated, rest.Events[1].Type)

	typ := models.EventTypeAgentCreated
	page, err = repo.Query(ctx, EventQuery{Type: &typ})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "a1", page.Events[0].EntityID)

	future := time.Now().Add(time.Hour)
	page, err = repo.Query(ctx, EventQuery{Since: &future})
	require.NoError(t, err)
	assert.Empty(t, page.Events)

	_, err = repo.Query(ctx, EventQuery{Cursor: "bogus"})
	assert.Error(t, err)
}

func TestEventRepository_RecentAndRetention(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		appendEvent(t, repo, models.EventTypeTaskCreated, models.EntityTypeTask, fmt.Sprintf("t%d", i))
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t4", recent[0].EntityID)
	assert.Equal(t, "t5", recent[1].EntityID)

	deleted, err := repo.DeleteExcess(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	deleted, err = repo.DeleteExcess(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	page, err := repo.Query(ctx, EventQuery{})
	require.NoError(t, err)
	require.Len(t, page.Events, 4)
	assert.Equal(t, "t2", page.Events[0].EntityID)
}
