// Package config loads the gostego YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/crypt"
)

// Config is the complete gostego configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Codec    CodecConfig    `yaml:"codec"`
	Server   ServerConfig   `yaml:"server"`
	Capacity CapacityConfig `yaml:"capacity"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type CodecConfig struct {
	Mode    string `yaml:"mode"`    // modern or legacy
	Profile string `yaml:"profile"` // empty: per-medium default
	Framing string `yaml:"framing"` // empty: per-medium default
	TempDir string `yaml:"temp_dir"`
}

type ServerConfig struct {
	Port        int   `yaml:"port"`
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

type CapacityConfig struct {
	Parallel int `yaml:"parallel"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Codec: CodecConfig{
			Mode: "modern",
		},
		Server: ServerConfig{
			Port:        8080,
			MaxUploadMB: 512,
		},
		Capacity: CapacityConfig{
			Parallel: 4,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes c as YAML. An existing file is not overwritten.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.Log.Level, levels)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Log.Format)
	}
	if m := strings.ToLower(c.Codec.Mode); m != "modern" && m != "legacy" {
		return fmt.Errorf("invalid codec mode: %s (must be 'modern' or 'legacy')", c.Codec.Mode)
	}
	if _, err := crypt.Lookup(c.Codec.Profile); err != nil {
		return fmt.Errorf("invalid codec profile: %w", err)
	}
	if _, err := bitframe.Lookup(c.Codec.Framing); err != nil {
		return fmt.Errorf("invalid codec framing: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1-65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max_upload_mb: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Capacity.Parallel <= 0 {
		return fmt.Errorf("invalid capacity parallel: %d (must be positive)", c.Capacity.Parallel)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a slog.Logger writing to stderr in the configured format.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
