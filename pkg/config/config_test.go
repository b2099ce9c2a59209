package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"APP_ENV", "LOG_LEVEL",
	"KLARITY_GITHUB_TOKEN", "GITHUB_TOKEN", "KLARITY_GITHUB_OWNER", "KLARITY_GITHUB_REPO",
	"KLARITY_INBOX_PATH", "KLARITY_GITHUB_API_URL", "KLARITY_REQUEST_TIMEOUT",
	"KLARITY_POLL_INTERVAL", "KLARITY_MAX_SYNC_FAILURES", "SYNC_HEALTH_ADDR",
	"KLARITY_BREAKER_ENABLED", "KLARITY_BREAKER_FAILURES", "KLARITY_BREAKER_TIMEOUT",
	"KLARITY_BREAKER_INTERVAL", "KLARITY_BREAKER_HALF_OPEN_REQUESTS",
	"KLARITY_DATA_DIR", "KLARITY_STORE", "DATABASE_URL", "KLARITY_SQLITE_PATH",
	"KLARITY_EVENTS", "RABBITMQ_URL", "RABBITMQ_EXCHANGE", "REDIS_URL",
	"MCP_ADDR", "MCP_AUTH_TOKEN",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
	// Keep a developer's .env out of the test.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("KLARITY_DATA_DIR", "/tmp/klarity")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ".taskboard", cfg.GitHubRepo)
	assert.Equal(t, "inbox.json", cfg.InboxPath)
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPIURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.MaxSyncFailures)
	assert.True(t, cfg.BreakerEnabled)
	assert.Equal(t, StoreJSON, cfg.Store)
	assert.Equal(t, filepath.Join("/tmp/klarity", "inbox.db"), cfg.SQLitePath)
	assert.Equal(t, EventsInProcess, cfg.Events)
	assert.False(t, cfg.GitHubConfigured())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("KLARITY_GITHUB_TOKEN", "ghp_test")
	t.Setenv("KLARITY_GITHUB_OWNER", "octo")
	t.Setenv("KLARITY_POLL_INTERVAL", "45s")
	t.Setenv("KLARITY_STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/klarity")
	t.Setenv("KLARITY_EVENTS", "redis")
	t.Setenv("KLARITY_BREAKER_ENABLED", "false")
	t.Setenv("KLARITY_MAX_SYNC_FAILURES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.GitHubConfigured())
	assert.Equal(t, 45*time.Second, cfg.PollInterval)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, EventsRedis, cfg.Events)
	assert.False(t, cfg.BreakerEnabled)
	assert.Equal(t, 5, cfg.MaxSyncFailures, "unparseable values fall back to the default")
}

func TestLoad_TokenFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ghp_fallback", cfg.GitHubToken)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is set, even to "".
	require.NoError(t, os.Unsetenv("KLARITY_GITHUB_OWNER"))
	t.Cleanup(func() { _ = os.Unsetenv("KLARITY_GITHUB_OWNER") })
	require.NoError(t, os.WriteFile(".env", []byte("KLARITY_GITHUB_OWNER=from-dotenv\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GitHubOwner)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown store", env: map[string]string{"KLARITY_STORE": "mongo"}, want: "unknown KLARITY_STORE"},
		{name: "postgres without url", env: map[string]string{"KLARITY_STORE": "postgres"}, want: "requires DATABASE_URL"},
		{name: "unknown events", env: map[string]string{"KLARITY_EVENTS": "kafka"}, want: "unknown KLARITY_EVENTS"},
		{name: "zero interval", env: map[string]string{"KLARITY_POLL_INTERVAL": "0s"}, want: "KLARITY_POLL_INTERVAL"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
