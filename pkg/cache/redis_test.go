package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSetGet(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "dash:summary", "value1", time.Hour))

	val, err := client.Get(ctx, "dash:summary")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)

	_, err = client.Get(ctx, "dash:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestJSONRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	type summary struct {
		Total int            `json:"total"`
		ByKey map[string]int `json:"by_key"`
	}

	in := summary{Total: 7, ByKey: map[string]int{"new": 4, "contacted": 3}}
	require.NoError(t, client.SetJSON(ctx, "dash:counts", in, time.Minute))

	var out summary
	require.NoError(t, client.GetJSON(ctx, "dash:counts", &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, client.GetJSON(ctx, "dash:missing", &out), ErrCacheMiss)
}

func TestDeletePattern(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "dash:counts", "a", time.Hour))
	require.NoError(t, client.Set(ctx, "dash:distribution", "b", time.Hour))
	require.NoError(t, client.Set(ctx, "auth:token", "c", time.Hour))

	require.NoError(t, client.DeletePattern(ctx, "dash:*"))

	exists, err := client.Exists(ctx, "dash:counts")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = client.Exists(ctx, "auth:token")
	require.NoError(t, err)
	assert.True(t, exists)
}
