package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(map[string]string{"JWT_KEY": "k"})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "k", cfg.JWTKey)
	assert.Equal(t, DefaultBlockingPermits, cfg.BlockingPermits)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := LoadFromEnv(map[string]string{"PORT": "9000"})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := LoadFromEnv(map[string]string{
		"JWT_KEY":            "k",
		"PORT":               "9000",
		"DATABASE_URL":       "sqlite::memory:",
		"BLOCKING_PERMITS":   "2",
		"BCRYPT_COST":        "4",
		"ALLOWED_ORIGINS":    "https://a.example.com, ,https://b.example.com",
		"HEARTBEAT_INTERVAL": "2s",
	})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite::memory:", cfg.DatabaseURL)
	assert.Equal(t, 2, cfg.BlockingPermits)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.HeartbeatInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := LoadFromEnv(map[string]string{"JWT_KEY": "k", "BCRYPT_COST": "99"})
	assert.Error(t, err)

	_, err = LoadFromEnv(map[string]string{"JWT_KEY": "k", "BLOCKING_PERMITS": "many"})
	assert.Error(t, err)
}

func TestLoadNonPositivePermitsFallsBack(t *testing.T) {
	cfg, err := LoadFromEnv(map[string]string{"JWT_KEY": "k", "BLOCKING_PERMITS": "0"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockingPermits, cfg.BlockingPermits)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
jwt_key: from-file
log_level: debug
blocking_permits: 3
allowed_origins:
  - https://app.example.com
`), 0o600))

	cfg, err := LoadFromEnv(map[string]string{"CONFIG_FILE": path})
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "from-file", cfg.JWTKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.BlockingPermits)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)

	cfg, err = LoadFromEnv(map[string]string{"CONFIG_FILE": path, "PORT": "7100"})
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Port)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := LoadFromEnv(map[string]string{"JWT_KEY": "k", "CONFIG_FILE": filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestEnvMap(t *testing.T) {
	m := envMap([]string{"A=1", "B=x=y", "broken"})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, m)
}
