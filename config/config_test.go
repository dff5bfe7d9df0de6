package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageBadger, cfg.Storage.Driver)
	assert.Equal(t, "data/classpoint", cfg.Storage.Path)
	assert.Equal(t, 10, cfg.App.LeaderboardSize)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.App.Timezone)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.True(t, cfg.Features.IsEnabled(FeatureLeaderboardPeriods))
	assert.False(t, cfg.Features.IsEnabled(FeatureRedisFanout))
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORAGE_DRIVER=sqlite\nAPP_LEADERBOARD_SIZE=5\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("APP_LEADERBOARD_SIZE", "7")
	t.Cleanup(func() { os.Unsetenv("STORAGE_DRIVER") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/classpoint.db", cfg.Storage.Path)
	assert.Equal(t, 7, cfg.App.LeaderboardSize, "process environment wins over the env file")
}

func TestValidate(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("AUTH_ACCOUNTS", "teacher")
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "AUTH_ACCOUNTS")
	assert.Contains(t, err.Error(), "HTTP_PORT")
}

func TestLoad_ReportsUnparsableValues(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REDIS_PORT", "six")
	t.Setenv("STORAGE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `REDIS_PORT="six" is not a valid integer`)
	assert.Contains(t, err.Error(), `STORAGE_TIMEOUT="soon" is not a valid duration`)
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_EVENTS_REDIS_FANOUT", "true")
	ff := LoadFeatureFlags()
	assert.True(t, ff.IsEnabled(FeatureRedisFanout))
	assert.False(t, ff.IsEnabled("nope"))

	require.NoError(t, ff.Set(FeatureExport, false))
	assert.False(t, ff.IsEnabled(FeatureExport))
	assert.Error(t, ff.Set("nope", true))
	assert.Len(t, ff.Names(), 5)
	assert.NotContains(t, ff.Enabled(), FeatureExport)
	assert.Contains(t, ff.Enabled(), FeatureRedisFanout)

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.IsEnabled(FeatureExport))
}
