package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "-", cfg.Input)
	assert.True(t, cfg.Watch)
	assert.False(t, cfg.OutputJSON)
	assert.Equal(t, 400, cfg.MaxFragmentLen)
	assert.Equal(t, 150*time.Millisecond, cfg.FrameDelay)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr())
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, 60*time.Second, cfg.MetricsInterval)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("QLINK_LOG_LEVEL", "DEBUG")
	t.Setenv("QLINK_WATCH", "false")
	t.Setenv("QLINK_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("QLINK_METRICS_INTERVAL", "1s")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.False(t, cfg.Watch)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, MinMetricsInterval, cfg.MetricsInterval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_fragment_len: 200\nunix_socket: /tmp/qlink.sock\n"), 0o600))
	t.Setenv("QLINK_CONFIG_FILE", path)

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.MaxFragmentLen)
	assert.Equal(t, "/tmp/qlink.sock", cfg.UnixSocket)
}

func TestLoadInvalid(t *testing.T) {
	for key, value := range map[string]string{
		"QLINK_LOG_LEVEL":        "loud",
		"QLINK_LOG_FORMAT":       "xml",
		"QLINK_MAX_FRAGMENT_LEN": "0",
		"QLINK_CONFIG_FILE":      "/nonexistent/qlink.toml",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(viper.New())
			assert.Error(t, err)
		})
	}
}
