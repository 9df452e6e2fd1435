package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, configFile string, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return Load(fs, configFile)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, SessionMemory, cfg.SessionBackend)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "admin21", cfg.AdminUsername)
	assert.Equal(t, 7823, cfg.GithubStars)
	assert.True(t, cfg.InsecureSecret())
	assert.Equal(t, 30, cfg.RateLimit.Capacity)
}

func TestEnvironmentProvidesDefaults(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE", "MEMORY")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestFileOverridesEnvAndFlagOverridesFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	path := filepath.Join(t.TempDir(), "titanhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log-level: debug
storage: memory
admin-username: root
ratelimit-capacity: 5
`), 0o600))

	cfg, err := load(t, path, "--admin-username=ops")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "ops", cfg.AdminUsername)
	assert.Equal(t, 5, cfg.RateLimit.Capacity)
}

func TestMissingFile(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad log format", []string{"--log-format=xml"}},
		{"unknown storage", []string{"--storage=mongo"}},
		{"redis sessions without redis", []string{"--session-backend=redis"}},
		{"postgres sessions on memory storage", []string{"--storage=memory", "--session-backend=postgres"}},
		{"bad samesite", []string{"--cookie-samesite=sometimes"}},
		{"empty secret", []string{"--session-secret="}},
		{"no admin password", []string{"--admin-password="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, "", tt.args...)
			require.Error(t, err)
		})
	}
}

func TestRateLimitNormalized(t *testing.T) {
	cfg, err := load(t, "", "--ratelimit-capacity=0", "--ratelimit-refill-interval=0s", "--ratelimit-ttl=1s")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.RateLimit.Capacity)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.TTL)
}

func TestNewRedisClientWithoutAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient(context.Background(), &Config{}))
}
