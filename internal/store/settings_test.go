package store

import (
	"context"
	"testing"

	"github.com/erazemk/nabava/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJWTSecretGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSetSettingOverwrites(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, ok, err := GetSetting(ctx, database, SettingAnalysisContext)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetSetting(ctx, database, SettingAnalysisContext, "first"))
	require.NoError(t, SetSetting(ctx, database, SettingAnalysisContext, "second"))

	value, ok, err := GetSetting(ctx, database, SettingAnalysisContext)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}
