package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultYear(t *testing.T) {
	assert.Equal(t, 2024, DefaultYear(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2024, DefaultYear(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SESSION_ID", "cookie")
	t.Setenv("LEADERBOARD_ID", "12345")
	t.Setenv("YEAR", "2022")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("FETCH_INTERVAL", "30m")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "cookie", cfg.SessionCookie)
	assert.Equal(t, "12345", cfg.LeaderboardId)
	assert.Equal(t, 2022, cfg.Year)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.FetchInterval)
	assert.Equal(t, "./data.sqlite3", cfg.DatabasePath)
	assert.True(t, cfg.CanFetch())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("year: 2019\nserver_port: 9000\nlog_level: debug\n"), 0o600))

	t.Setenv(FileEnv, path)
	t.Setenv("SERVER_PORT", "9001")

	cfg, err := Load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 2019, cfg.Year)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.CanFetch())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEADERBOARD_ID=777\n"), 0o600))
	t.Setenv("LEADERBOARD_ID", "")
	os.Unsetenv("LEADERBOARD_ID")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "777", cfg.LeaderboardId)
}

func TestValidate(t *testing.T) {
	now := time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, New(now).Validate())

	tests := map[string]func(c *Config){
		"port":     func(c *Config) { c.Port = 0 },
		"interval": func(c *Config) { c.FetchInterval = time.Minute },
		"year":     func(c *Config) { c.Year = 2014 },
		"database": func(c *Config) { c.DatabasePath = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := New(now)
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
