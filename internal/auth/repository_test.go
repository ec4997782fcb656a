// AngelaMos | 2026
// repository_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (Repository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRepository(client), mr
}

func TestRevokeSetsExpiringKey(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL(revokedKeyPrefix + "jti-1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	mr.FastForward(time.Hour + time.Second)

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeAlreadyExpiredIsNoop(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(revokedKeyPrefix+"jti-2"))
}

func TestIsRevokedUnknownAndEmpty(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}
