package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Realtime.ReconnectInterval)
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, 100, cfg.Notify.MaxItems)
	assert.Equal(t, "notifications", cfg.Realtime.Namespace)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "surveydesk.yaml")
	data := []byte(`
api:
  base_url: http://api.example.com
realtime:
  url: ws://api.example.com/ws
  namespace: qa
  reconnect_interval: 2s
  max_reconnect_attempts: 3
notify:
  max_items: 50
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, "qa", cfg.Realtime.Namespace)
	assert.Equal(t, 2*time.Second, cfg.Realtime.ReconnectInterval)
	assert.Equal(t, 3, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, 50, cfg.Notify.MaxItems)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SURVEYDESK_API_URL", "http://override.example.com")
	t.Setenv("SURVEYDESK_RECONNECT_INTERVAL", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://override.example.com", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.ReconnectInterval)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
