package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err) // explicit path that does not exist is an error

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 9002, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10, cfg.Transcode.SegmentSeconds)
	assert.Equal(t, 52, cfg.Transcode.GOPSize)
	assert.Equal(t, "/ts", cfg.Transcode.SegmentURLPrefix)
	assert.Equal(t, 6*time.Hour, cfg.Transcode.CleanupMaxAge)
	assert.Equal(t, 5*time.Second, cfg.Push.SendTimeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
logging:
  level: debug
  format: text
transcode:
  temp_dir: /tmp/rendermux
  segment_seconds: 6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "/tmp/rendermux", cfg.Transcode.TempDir)
	assert.Equal(t, 6, cfg.Transcode.SegmentSeconds)
	// Unset values fall back to defaults
	assert.Equal(t, "/ts", cfg.Transcode.SegmentURLPrefix)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		v := viper.New()
		SetDefaults(v)
		var cfg Config
		require.NoError(t, v.Unmarshal(&cfg))
		return &cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"missing temp dir", func(c *Config) { c.Transcode.TempDir = "" }, "transcode.temp_dir"},
		{"bad segment seconds", func(c *Config) { c.Transcode.SegmentSeconds = 0 }, "transcode.segment_seconds"},
		{"bad url prefix", func(c *Config) { c.Transcode.SegmentURLPrefix = "ts" }, "transcode.segment_url_prefix"},
		{"negative low speed", func(c *Config) { c.Transcode.LowSpeedKbps = -1 }, "transcode.low_speed_kbps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9002}
	assert.Equal(t, "127.0.0.1:9002", cfg.Address())
}
