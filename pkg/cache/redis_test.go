package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/pkg/cache"
)

func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	_, err := cache.NewRedisClient("  ")
	require.Error(t, err)

	c, err := cache.NewRedisClient("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", c.Options().Addr)

	c, err = cache.NewRedisClient("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	_, err = cache.NewRedisClient("redis://cache:6379/notadb")
	require.Error(t, err)
}

func TestJSON_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := cache.NewRedisClient(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	c := cache.NewJSON(client, "test:"+uuid.NewString()+":", time.Minute)
	type snapshot struct {
		Pending int `json:"pending"`
	}

	var got snapshot
	hit, err := c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "dashboard", snapshot{Pending: 3}))
	hit, err = c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, got.Pending)

	require.NoError(t, c.Invalidate(ctx, "dashboard", "report:thisWeek"))
	hit, err = c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.Invalidate(ctx))
}
