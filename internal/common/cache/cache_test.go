package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"), "parts are delimited")
	assert.Len(t, Key("x"), 64)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(map[string]string{"token": "abc", "env": "dev"})
	b := Fingerprint(map[string]string{"env": "dev", "token": "abc"})
	c := Fingerprint(map[string]string{"env": "dev", "token": "xyz"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", "Bearer abc", 0))
	v, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "Bearer abc", v)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "k"))
	_, found = c.Get(ctx, "k")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestLocalCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	c := NewRedisCache(client, "test:", time.Hour)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Hour, mr.TTL("test:k"))

	v, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", v)

	mr.FastForward(2 * time.Hour)
	_, found = c.Get(ctx, "k")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, mr.Set("other:c", "3"))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("other:c"), "clear only touches its own prefix")
}

func TestRedisCache_Unavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCache(client, "test:", time.Hour)
	mr.Close()

	_, found := c.Get(context.Background(), "k")
	assert.False(t, found)
	assert.Error(t, c.Set(context.Background(), "k", "v", 0))
}

func TestTwoTierCache(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	c := NewTwoTierCache(time.Hour, time.Minute, client, "tt:")

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	assert.True(t, mr.Exists("tt:k"))

	v, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", v)

	// an entry written by another instance is pulled into L1
	require.NoError(t, mr.Set("tt:remote", "r"))
	v, found = c.Get(ctx, "remote")
	assert.True(t, found)
	assert.Equal(t, "r", v)
	mr.Del("tt:remote")
	v, found = c.Get(ctx, "remote")
	assert.True(t, found)
	assert.Equal(t, "r", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, found = c.Get(ctx, "k")
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	client, _ := setupTestRedis(t)

	tests := []struct {
		name     string
		config   Config
		want     interface{}
		wantType Type
		wantErr  bool
	}{
		{"default type", Config{}, &LocalCache{}, TypeLocal, false},
		{"local", Config{Type: TypeLocal}, &LocalCache{}, TypeLocal, false},
		{"none", Config{Type: TypeNone}, Noop{}, TypeNone, false},
		{"redis", Config{Type: TypeRedis, RedisClient: client}, &RedisCache{}, TypeRedis, false},
		{"two tier", Config{Type: TypeTwoTier, RedisClient: client}, &TwoTierCache{}, TypeTwoTier, false},
		{"redis without client", Config{Type: TypeRedis}, nil, "", true},
		{"two tier without client", Config{Type: TypeTwoTier}, nil, "", true},
		{"redis falls back", Config{Type: TypeRedis, FallbackToLocal: true}, &LocalCache{}, TypeLocal, false},
		{"two tier falls back", Config{Type: TypeTwoTier, FallbackToLocal: true}, &LocalCache{}, TypeLocal, false},
		{"unknown", Config{Type: "memcached"}, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, built, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, c)
			assert.Equal(t, tt.wantType, built)
		})
	}
}

func TestType_Shared(t *testing.T) {
	assert.True(t, TypeRedis.Shared())
	assert.True(t, TypeTwoTier.Shared())
	assert.False(t, TypeLocal.Shared())
	assert.False(t, TypeNone.Shared())
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	_, found := c.Get(context.Background(), "k")
	assert.False(t, found)
}
