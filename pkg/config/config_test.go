package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)
	assert.Equal(t, DefaultRPCTimeout, cfg.RPCTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Username)
}

func TestLoadFromFile(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("HOME", t.TempDir())

	dir := filepath.Join(configDir, "seedpick")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
url: http://nas:9091/transmission/rpc
username: alice
refresh_interval: 2s
logging:
  level: debug
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://nas:9091/transmission/rpc", cfg.URL)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, 2*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultRPCTimeout, cfg.RPCTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEEDPICK_URL", "http://envhost:9091/transmission/rpc")
	t.Setenv("SEEDPICK_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://envhost:9091/transmission/rpc", cfg.URL)
	assert.Equal(t, "hunter2", cfg.Password)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("HOME", t.TempDir())

	dir := filepath.Join(configDir, "seedpick")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("url: [broken"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		URL:             DefaultURL,
		RefreshInterval: DefaultRefreshInterval,
		RPCTimeout:      DefaultRPCTimeout,
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("bad url", func(t *testing.T) {
		cfg := valid
		cfg.URL = "not a url"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing scheme", func(t *testing.T) {
		cfg := valid
		cfg.URL = "localhost:9091"
		assert.Error(t, cfg.Validate())
	})

	t.Run("refresh below floor", func(t *testing.T) {
		cfg := valid
		cfg.RefreshInterval = 100 * time.Millisecond
		assert.Error(t, cfg.Validate())
	})

	t.Run("nonpositive timeout", func(t *testing.T) {
		cfg := valid
		cfg.RPCTimeout = 0
		assert.Error(t, cfg.Validate())
	})
}
