package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqarlink/crm/pkg/cache"
)

func setupTestRedis(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestTokenBlacklistAddAndCheck(t *testing.T) {
	client, _ := setupTestRedis(t)
	blacklist := NewTokenBlacklist(client)
	ctx := context.Background()

	token := "test.jwt.token"
	require.NoError(t, blacklist.Add(ctx, token, time.Hour))

	revoked, err := blacklist.IsBlacklisted(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "another.jwt.token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenBlacklistExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	blacklist := NewTokenBlacklist(client)
	ctx := context.Background()

	token := "short.lived.token"
	require.NoError(t, blacklist.Add(ctx, token, time.Minute))

	// Entries lapse together with the token's own lifetime.
	mr.FastForward(2 * time.Minute)

	revoked, err := blacklist.IsBlacklisted(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)
}
