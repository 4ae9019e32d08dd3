package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/nabava/internal/auth"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.NoError(t, model.ValidatePassword(a))
}

func TestInitDatabaseCreatesAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nabava.sqlite3")
	ctx := context.Background()

	database, password, err := initDatabase(ctx, path, "owner")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	u, err := store.GetUserByUsername(ctx, database, "owner")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, auth.CheckPassword(u.PasswordHash, password))
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("NABAVA_DB_PATH", "env.sqlite3")
	t.Setenv("NABAVA_ORACLE_PROVIDER", "none")

	dbPath, addr = "", ""
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env.sqlite3", cfg.DB.Path)

	dbPath, addr = "flag.sqlite3", ":9999"
	t.Cleanup(func() { dbPath, addr = "", "" })
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "flag.sqlite3", cfg.DB.Path)
	assert.Equal(t, ":9999", cfg.App.Addr)
}

func TestHousekeeping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nabava.sqlite3")
	ctx := context.Background()
	now := time.Now()

	database, _, err := initDatabase(ctx, path, "owner")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, store.RevokeToken(ctx, database, "stale", now.Add(-time.Hour)))
	require.NoError(t, store.RevokeToken(ctx, database, "fresh", now.Add(time.Hour)))

	buf := &bytes.Buffer{}
	log := logger.New(logger.Options{ServiceName: "test", Output: buf})

	purged, operators, err := housekeeping(ctx, log, database, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Equal(t, 1, operators)
	assert.NotContains(t, buf.String(), "no active operator")

	owner, err := store.GetUserByUsername(ctx, database, "owner")
	require.NoError(t, err)
	require.NoError(t, store.DeleteUser(ctx, database, owner.ID))

	_, operators, err = housekeeping(ctx, log, database, now)
	require.NoError(t, err)
	assert.Zero(t, operators)
	assert.Contains(t, buf.String(), "no active operator accounts")
}
