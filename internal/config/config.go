// Package config provides configuration management for rendermux using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 9002
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSegmentSeconds  = 10
	defaultGOPSize         = 52
	defaultLowSpeedKbps    = 800
	defaultCleanupMaxAge   = 6 * time.Hour
	defaultRenderWidth     = 1920
	defaultRenderHeight    = 1080
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Push      PushConfig      `mapstructure:"push"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// TranscodeConfig holds transcoding pipeline configuration.
type TranscodeConfig struct {
	// TempDir is the root directory for segment session folders.
	TempDir string `mapstructure:"temp_dir"`
	// SegmentURLPrefix is the URL path prefix clients use to fetch segments.
	SegmentURLPrefix string `mapstructure:"segment_url_prefix"`
	// SegmentSeconds is the target duration of each HLS segment.
	SegmentSeconds int `mapstructure:"segment_seconds"`
	// GOPSize is the keyframe group size for fragmented MP4 output.
	GOPSize int `mapstructure:"gop_size"`
	// LowSpeedKbps is the downlink threshold below which bitrate limiting applies.
	LowSpeedKbps int `mapstructure:"low_speed_kbps"`
	// CleanupMaxAge is how old an orphaned session folder must be before the
	// scheduled sweep removes it.
	CleanupMaxAge time.Duration `mapstructure:"cleanup_max_age"`
	// CleanupCron is the cron expression for the orphan sweep schedule.
	CleanupCron string `mapstructure:"cleanup_cron"`
	// RenderWidth and RenderHeight are the server-side render dimensions used
	// when a client screen size constrains the output.
	RenderWidth  int `mapstructure:"render_width"`
	RenderHeight int `mapstructure:"render_height"`
}

// PushConfig holds push channel configuration.
type PushConfig struct {
	// SendTimeout bounds a single live-channel write.
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with RENDERMUX_ and use underscores for
// nesting. Example: RENDERMUX_SERVER_PORT=9002.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rendermux")
		v.AddConfigPath("$HOME/.rendermux")
	}

	v.SetEnvPrefix("RENDERMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file so defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("transcode.temp_dir", filepath.Join("data", "temp"))
	v.SetDefault("transcode.segment_url_prefix", "/ts")
	v.SetDefault("transcode.segment_seconds", defaultSegmentSeconds)
	v.SetDefault("transcode.gop_size", defaultGOPSize)
	v.SetDefault("transcode.low_speed_kbps", defaultLowSpeedKbps)
	v.SetDefault("transcode.cleanup_max_age", defaultCleanupMaxAge)
	v.SetDefault("transcode.cleanup_cron", "0 0 * * * *") // hourly (6-field cron)
	v.SetDefault("transcode.render_width", defaultRenderWidth)
	v.SetDefault("transcode.render_height", defaultRenderHeight)

	v.SetDefault("push.send_timeout", 5*time.Second)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Transcode.TempDir == "" {
		return fmt.Errorf("transcode.temp_dir is required")
	}
	if c.Transcode.SegmentSeconds < 1 {
		return fmt.Errorf("transcode.segment_seconds must be at least 1")
	}
	if !strings.HasPrefix(c.Transcode.SegmentURLPrefix, "/") {
		return fmt.Errorf("transcode.segment_url_prefix must start with /")
	}
	if c.Transcode.LowSpeedKbps < 0 {
		return fmt.Errorf("transcode.low_speed_kbps must not be negative")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
