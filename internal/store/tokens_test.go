package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/nabava/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokedTokenIsRecognized(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, database, "jti-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, database, "jti-a", time.Now().Add(time.Hour)))
	require.NoError(t, RevokeToken(ctx, database, "jti-a", time.Now().Add(time.Hour)), "second revoke")

	revoked, err = IsTokenRevoked(ctx, database, "jti-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsTokenRevoked(ctx, database, "jti-b")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Error(t, RevokeToken(ctx, database, "", time.Now()))
}

func TestPurgeExpiredTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, RevokeToken(ctx, database, "old", now.Add(-time.Minute)))
	require.NoError(t, RevokeToken(ctx, database, "older", now.Add(-24*time.Hour)))
	require.NoError(t, RevokeToken(ctx, database, "live", now.Add(time.Hour)))

	n, err := PurgeExpiredTokens(ctx, database, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	revoked, err := IsTokenRevoked(ctx, database, "live")
	require.NoError(t, err)
	assert.True(t, revoked, "unexpired revocation survives")

	revoked, err = IsTokenRevoked(ctx, database, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err = PurgeExpiredTokens(ctx, database, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
