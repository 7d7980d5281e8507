package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
)

func TestKVRepository_SetGetOverwrite(t *testing.T) {
	repo := NewKVRepository(setupTestDB(t))
	ctx := context.Background()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return first }
	require.NoError(t, repo.Set(ctx, "default", "gf_agents", `[]`))

	repo.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, repo.Set(ctx, "default", "gf_agents", `[{"id":"1"}]`))

	entry, err := repo.Get(ctx, "default", "gf_agents")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, entry.Value)
	assert.Equal(t, first, entry.CreatedAt)
	assert.Equal(t, first.Add(time.Hour), entry.UpdatedAt)
}

func TestKVRepository_NamespacesAreIsolated(t *testing.T) {
	repo := NewKVRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "alice", "userRole", "ADMIN"))
	require.NoError(t, repo.Set(ctx, "bob", "userRole", "AGENT"))

	entry, err := repo.Get(ctx, "bob", "userRole")
	require.NoError(t, err)
	assert.Equal(t, "AGENT", entry.Value)

	entries, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ADMIN", entries[0].Value)
}

func TestKVRepository_GetMissing(t *testing.T) {
	repo := NewKVRepository(setupTestDB(t))
	_, err := repo.Get(context.Background(), "default", "nope")
	assert.ErrorIs(t, err, ErrKVNotFound)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestKVRepository_Delete(t *testing.T) {
	repo := NewKVRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "default", "userData", `{}`))
	require.NoError(t, repo.Delete(ctx, "default", "userData"))
	assert.True(t, errors.Is(repo.Delete(ctx, "default", "userData"), ErrKVNotFound))
}

func TestKVRepository_SetBatchIsAtomic(t *testing.T) {
	repo := NewKVRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SetBatch(ctx, "default", map[string]string{
		"gf_agents": `[]`,
		"gf_tasks":  `[]`,
	}))
	entries, err := repo.List(ctx, "default")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	err = repo.SetBatch(ctx, "default", map[string]string{
		"gf_agents": `[{"id":"9"}]`,
		"":          "invalid key",
	})
	require.Error(t, err)

	entry, err := repo.Get(ctx, "default", "gf_agents")
	require.NoError(t, err)
	assert.Equal(t, `[]`, entry.Value, "failed batch leaves earlier values")
}

func TestKVRepository_RejectsEmptyValue(t *testing.T) {
	repo := NewKVRepository(setupTestDB(t))
	err := repo.Set(context.Background(), "default", "k", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "geoforce.db")
	database, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.Migrate(context.Background()))

	repo := NewKVRepository(database)
	require.NoError(t, repo.Set(context.Background(), "default", "k", "v"))
	assert.Equal(t, path, database.Path())
}
