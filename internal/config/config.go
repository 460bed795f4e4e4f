// Package config loads the barewire CLI configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/speakez-llc/barewire/pkg/wire"
)

// Config is the root configuration structure.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Decode      DecodeConfig      `yaml:"decode"`
	Compression CompressionConfig `yaml:"compression"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// DecodeConfig bounds and tunes decoding.
type DecodeConfig struct {
	MaxDepth  int  `yaml:"max_depth"`
	AliasData bool `yaml:"alias_data"`
}

// CompressionConfig controls zstd framing of encoded files.
type CompressionConfig struct {
	Zstd  bool   `yaml:"zstd"`
	Level string `yaml:"level"` // "fastest", "default", "better", "best"
}

// EncoderLevel maps Level to a zstd level. Level is assumed valid.
func (c CompressionConfig) EncoderLevel() zstd.EncoderLevel {
	_, level := zstd.EncoderLevelFromString(c.Level)
	return level
}

// DecodeOptions converts the decode section for pkg/wire.
func (c DecodeConfig) DecodeOptions() wire.DecodeOptions {
	return wire.DecodeOptions{MaxDepth: c.MaxDepth, AliasData: c.AliasData}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			// Expand environment variables
			data = []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg again after a caller has changed it, for example from
// command-line flags.
func (cfg *Config) Validate() error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies BAREWIRE_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BAREWIRE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BAREWIRE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BAREWIRE_DECODE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Decode.MaxDepth = n
		}
	}
	if v := os.Getenv("BAREWIRE_DECODE_ALIAS_DATA"); v != "" {
		cfg.Decode.AliasData = parseBool(v)
	}
	if v := os.Getenv("BAREWIRE_ZSTD"); v != "" {
		cfg.Compression.Zstd = parseBool(v)
	}
	if v := os.Getenv("BAREWIRE_ZSTD_LEVEL"); v != "" {
		cfg.Compression.Level = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Decode.MaxDepth == 0 {
		cfg.Decode.MaxDepth = wire.DefaultMaxDepth
	}
	if cfg.Compression.Level == "" {
		cfg.Compression.Level = "default"
	}
}

func validate(cfg *Config) error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, disabled, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	if cfg.Decode.MaxDepth < 0 {
		return fmt.Errorf("decode.max_depth must not be negative, got %d", cfg.Decode.MaxDepth)
	}
	if ok, _ := zstd.EncoderLevelFromString(cfg.Compression.Level); !ok {
		return fmt.Errorf("compression.level must be one of: fastest, default, better, best, got %q", cfg.Compression.Level)
	}
	return nil
}
