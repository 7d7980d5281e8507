package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/persist"
)

func TestLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	mgr := NewManager(kv, Config{})

	sess, err := mgr.Login(ctx, models.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, "agent1", sess.Profile.ID)

	current, err := NewManager(kv, Config{}).Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.RoleAgent, current.Role)
	assert.Equal(t, models.Profile{ID: "agent1", Name: "Alex Field"}, current.Profile)

	raw, ok, err := kv.Get(ctx, DefaultRoleKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AGENT", raw)
}

func TestCurrentRequiresBothKeys(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	mgr := NewManager(kv, Config{})

	require.NoError(t, kv.Set(ctx, DefaultRoleKey, "ADMIN"))
	current, err := mgr.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, kv.Set(ctx, DefaultUserKey, "{broken"))
	current, err = mgr.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestLogoutClearsBothKeys(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	mgr := NewManager(kv, Config{})

	_, err := mgr.Login(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, mgr.Logout(ctx))

	for _, key := range []string{DefaultRoleKey, DefaultUserKey} {
		_, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	require.NoError(t, mgr.Logout(ctx), "logout is idempotent")
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	_, err := NewManager(persist.NewMemoryKV(), Config{}).Login(context.Background(), models.Role("ROOT"))
	assert.ErrorIs(t, err, models.ErrInvalidRole)
}

func TestReadFailureIsPersistenceError(t *testing.T) {
	kv := persist.NewMemoryKV()
	kv.ReadErr = errors.New("locked")
	_, err := NewManager(kv, Config{}).Current(context.Background())
	assert.ErrorIs(t, err, models.ErrPersistence)
}
