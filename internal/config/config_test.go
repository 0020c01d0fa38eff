package config

import (
	log "log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HUME_API_KEY", "key")
	t.Setenv("HUME_SECRET_KEY", "secret")

	cfg, err := Load([]string{"--env", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "secret", cfg.SecretKey)
	assert.Equal(t, DefaultConfigID, cfg.ConfigID)
	assert.Equal(t, log.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "title.png", cfg.Assets.Title)
	assert.Equal(t, "FirstTime.png", cfg.Assets.Listening)
	assert.Equal(t, "SecondTime.png", cfg.Assets.Speaking)
	assert.True(t, cfg.Audio)
	assert.Equal(t, -1, cfg.Device)
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("HUME_API_KEY", "key")

	cfg, err := Load([]string{
		"--env", filepath.Join(t.TempDir(), "missing.env"),
		"-l", "debug",
		"--assets", "/srv/wellbot",
		"--no-audio",
		"-d", "2",
		"-c", "other",
	})
	require.NoError(t, err)

	assert.Equal(t, log.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/srv/wellbot/SecondTime.png", cfg.Assets.Speaking)
	assert.False(t, cfg.Audio)
	assert.Equal(t, 2, cfg.Device)
	assert.Equal(t, "other", cfg.ConfigID)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("HUME_API_KEY", "")
	t.Setenv("HUME_SECRET_KEY", "")
	os.Unsetenv("HUME_API_KEY")
	os.Unsetenv("HUME_SECRET_KEY")

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("HUME_API_KEY=from-file\nHUME_SECRET_KEY=s\n"), 0o600))

	cfg, err := Load([]string{"--env", env})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "s", cfg.SecretKey)
}

func TestLoadMissingKey(t *testing.T) {
	t.Setenv("HUME_API_KEY", "")

	_, err := Load([]string{"--env", filepath.Join(t.TempDir(), "missing.env")})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLoadBadLevel(t *testing.T) {
	t.Setenv("HUME_API_KEY", "key")

	_, err := Load([]string{"--env", filepath.Join(t.TempDir(), "missing.env"), "--log", "loud"})
	assert.Error(t, err)
}
