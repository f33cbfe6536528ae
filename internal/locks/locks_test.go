package locks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/common/errors"
	"header-rules/internal/redis"
)

func setupManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := redis.NewClient(&redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	manager, err := NewManager(client)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager, mr
}

func TestManager_TryAcquire(t *testing.T) {
	manager, mr := setupManager(t)
	ctx := context.Background()

	lock, err := manager.TryAcquire(ctx, "sync", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "sync", lock.Key())
	assert.True(t, lock.IsHeld())
	assert.True(t, mr.Exists("lock:sync"))
	assert.Equal(t, []string{"sync"}, manager.Held())

	require.NoError(t, lock.Release(ctx))
	assert.False(t, lock.IsHeld())
	assert.False(t, mr.Exists("lock:sync"))
	assert.Empty(t, manager.Held())

	// releasing twice is harmless
	assert.NoError(t, lock.Release(ctx))
}

func TestManager_TryAcquireContended(t *testing.T) {
	manager, _ := setupManager(t)
	ctx := context.Background()

	first, err := manager.TryAcquire(ctx, "sync", 30*time.Second)
	require.NoError(t, err)
	defer first.Release(ctx)

	second, err := manager.TryAcquire(ctx, "sync", 30*time.Second)
	assert.Nil(t, second)
	assert.True(t, errors.IsType(err, errors.ErrTypeConflict))
}

func TestManager_HeldByForeignValue(t *testing.T) {
	manager, mr := setupManager(t)
	require.NoError(t, mr.Set("lock:sync", "another-instance"))

	_, err := manager.TryAcquire(context.Background(), "sync", 30*time.Second)
	assert.True(t, errors.IsType(err, errors.ErrTypeConflict))
}

func TestManager_Close(t *testing.T) {
	manager, mr := setupManager(t)
	ctx := context.Background()

	lock, err := manager.TryAcquire(ctx, "a", 30*time.Second)
	require.NoError(t, err)
	_, err = manager.TryAcquire(ctx, "b", 30*time.Second)
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	assert.False(t, lock.IsHeld())
	assert.False(t, mr.Exists("lock:a"))
	assert.False(t, mr.Exists("lock:b"))
}

func TestNewManager_RequiresClient(t *testing.T) {
	_, err := NewManager(nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}
