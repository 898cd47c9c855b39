package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liangmanlin/gopost/httpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "gopost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DialerNbio, cfg.Client.Dialer)
	assert.Equal(t, httpc.DefaultPumpInterval, cfg.Client.PumpInterval)
	assert.Equal(t, httpc.DefaultIdleTimeout, cfg.Client.IdleTimeout)
	assert.Equal(t, 2, cfg.Log.Level)
	assert.True(t, cfg.Log.Stdout)
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadValidYAML(t *testing.T) {
	path := writeConfig(t, `
log:
  path: /tmp/gopost-logs
  stdout: false
  level: 1
client:
  dialer: net
  pump_interval: 50ms
  idle_timeout: 0s
  headers:
    X-Game: fort
metrics:
  url: http://collector:9000/metrics
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/gopost-logs", cfg.Log.Path)
	assert.False(t, cfg.Log.Stdout)
	assert.Equal(t, 1, cfg.Log.Level)
	assert.Equal(t, DialerNet, cfg.Client.Dialer)
	assert.Equal(t, 50*time.Millisecond, cfg.Client.PumpInterval)
	assert.Equal(t, time.Duration(0), cfg.Client.IdleTimeout)
	assert.Equal(t, httpc.DefaultDialTimeout, cfg.Client.DialTimeout)
	assert.Equal(t, "fort", cfg.Client.Headers["X-Game"])
	assert.Equal(t, "http://collector:9000/metrics", cfg.Metrics.URL)
	assert.Len(t, cfg.DispatcherOptions(), 6)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "client: [unclosed"))
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "client:\n  dialer: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "client.dialer")
	_, err = Load(writeConfig(t, "log:\n  level: 5\n"))
	assert.ErrorContains(t, err, "log.level")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOPOST_DIALER", "net")
	t.Setenv("GOPOST_PUMP_INTERVAL", "250ms")
	t.Setenv("GOPOST_METRICS_URL", "http://env/")
	t.Setenv("GOPOST_LOG_LEVEL", "1")
	cfg, err := Load(writeConfig(t, "client:\n  dialer: nbio\n"))
	require.NoError(t, err)
	assert.Equal(t, DialerNet, cfg.Client.Dialer)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.PumpInterval)
	assert.Equal(t, "http://env/", cfg.Metrics.URL)
	assert.Equal(t, 1, cfg.Log.Level)
}
