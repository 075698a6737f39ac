package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/replykit/pkg/cache"
)

func newTestBlacklist(t *testing.T) *TokenBlacklist {
	mr := miniredis.RunT(t)
	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	return NewTokenBlacklist(client)
}

func TestBlacklistAddAndCheck(t *testing.T) {
	bl := newTestBlacklist(t)
	ctx := context.Background()

	err := bl.Add(ctx, "some.access.token", time.Hour)
	require.NoError(t, err)

	revoked, err := bl.IsBlacklisted(ctx, "some.access.token")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestBlacklistUnknownToken(t *testing.T) {
	bl := newTestBlacklist(t)

	revoked, err := bl.IsBlacklisted(context.Background(), "never.seen.token")
	require.NoError(t, err)
	assert.False(t, revoked)
}
