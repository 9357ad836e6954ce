package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(20), cfg.Raffle.ProfitFactor)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
raffle:
  owner: alice
  beneficiary: bob
  profit_factor: 35
  close_schedule: "0 * * * *"
auth:
  jwt_secret: sekrit
`), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	// Unspecified fields keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "alice", cfg.Raffle.Owner)
	assert.Equal(t, "bob", cfg.Raffle.Beneficiary)
	assert.Equal(t, int64(35), cfg.Raffle.ProfitFactor)
	assert.Equal(t, "0 * * * *", cfg.Raffle.CloseSchedule)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("RAFFLE_OWNER", "env-owner")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-owner", cfg.Raffle.Owner)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "raffle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))
		_, err := LoadFromPath(path)
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "raffle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 70000\n"), 0o600))
		_, err := LoadFromPath(path)
		assert.Error(t, err)
	})

	t.Run("profit factor out of range", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "raffle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("raffle:\n  profit_factor: 101\n"), 0o600))
		_, err := LoadFromPath(path)
		assert.Error(t, err)
	})
}

func TestLoadUsesConfigEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0o600))
	t.Setenv("RAFFLE_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}
