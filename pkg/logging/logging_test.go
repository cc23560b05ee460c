package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"debug", log.DebugLevel, false},
		{"info", log.InfoLevel, false},
		{"", log.InfoLevel, false},
		{"warn", log.WarnLevel, false},
		{"warning", log.WarnLevel, false},
		{"ERROR", log.ErrorLevel, false},
		{"loud", log.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidLevel, "level %q", tt.in)
			continue
		}
		require.NoError(t, err, "level %q", tt.in)
		assert.Equal(t, tt.want, got, "level %q", tt.in)
	}
}

func TestInitAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	require.NoError(t, Init(Config{Level: "debug", Path: path}))
	defer func() { require.NoError(t, Close()) }()

	logger := Get("session")
	logger.Info("snapshot applied", "files", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "snapshot applied")
	assert.Contains(t, string(data), "session")
	assert.Contains(t, string(data), "files=3")
}

func TestComponentLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	require.NoError(t, Init(Config{
		Level:      "error",
		Path:       path,
		Components: map[string]string{"noisy": "debug"},
	}))
	defer func() { require.NoError(t, Close()) }()

	Get("noisy").Debug("component override wins")
	Get("other").Info("suppressed by default level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "component override wins")
	assert.NotContains(t, string(data), "suppressed by default level")
}

func TestPreInitLoggerIsSilentThenRebuilt(t *testing.T) {
	require.NoError(t, Close())

	// Handed out before Init, so it writes nowhere.
	logger := Get("early")
	logger.Info("dropped")

	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, Init(Config{Level: "info", Path: path}))
	defer func() { require.NoError(t, Close()) }()

	// The same component name now reaches the file.
	Get("early").Info("delivered")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "delivered")
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.ErrorIs(t, Init(Config{Level: "shout"}), ErrInvalidLevel)
	assert.ErrorIs(t, Init(Config{
		Level:      "info",
		Components: map[string]string{"session": "shout"},
	}), ErrInvalidLevel)
}

func TestWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, Init(Config{Level: "info", Path: path}))
	defer func() { require.NoError(t, Close()) }()

	Get("session").With("torrent", 42).Info("refreshed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "torrent=42")
}
