package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/speakez-llc/barewire/internal/config"
)

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "barewire.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
logging:
  level: debug
  format: console

decode:
  max_depth: 128
  alias_data: true

compression:
  zstd: true
  level: best
`
	cfg := writeAndLoad(t, content)

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Decode.MaxDepth != 128 || !cfg.Decode.AliasData {
		t.Errorf("Decode = %+v, want max_depth 128 with alias_data", cfg.Decode)
	}
	if !cfg.Compression.Zstd {
		t.Error("Compression.Zstd = false, want true")
	}
	if got := cfg.Compression.EncoderLevel(); got != zstd.SpeedBestCompression {
		t.Errorf("EncoderLevel() = %v, want %v", got, zstd.SpeedBestCompression)
	}
	opts := cfg.Decode.DecodeOptions()
	if opts.MaxDepth != 128 || !opts.AliasData {
		t.Errorf("DecodeOptions() = %+v", opts)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "logging: {}\n")

	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format = %s, want json", cfg.Logging.Format)
	}
	if cfg.Decode.MaxDepth != 64 {
		t.Errorf("default Decode.MaxDepth = %d, want 64", cfg.Decode.MaxDepth)
	}
	if cfg.Compression.Zstd {
		t.Error("default Compression.Zstd = true, want false")
	}
	if got := cfg.Compression.EncoderLevel(); got != zstd.SpeedDefault {
		t.Errorf("default EncoderLevel() = %v, want %v", got, zstd.SpeedDefault)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}

	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Decode.MaxDepth != 64 {
		t.Errorf("Decode.MaxDepth = %d, want 64", cfg.Decode.MaxDepth)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BAREWIRE_LEVEL", "warn")
	cfg := writeAndLoad(t, "logging:\n  level: ${TEST_BAREWIRE_LEVEL}\n")
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BAREWIRE_LOG_FORMAT", "console")
	t.Setenv("BAREWIRE_DECODE_MAX_DEPTH", "9")
	t.Setenv("BAREWIRE_DECODE_ALIAS_DATA", "yes")
	t.Setenv("BAREWIRE_ZSTD", "1")
	t.Setenv("BAREWIRE_ZSTD_LEVEL", "fastest")

	cfg := writeAndLoad(t, "logging:\n  format: json\ndecode:\n  max_depth: 100\n")
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Decode.MaxDepth != 9 || !cfg.Decode.AliasData {
		t.Errorf("Decode = %+v, want max_depth 9 with alias_data", cfg.Decode)
	}
	if !cfg.Compression.Zstd || cfg.Compression.EncoderLevel() != zstd.SpeedFastest {
		t.Errorf("Compression = %+v, want zstd at fastest", cfg.Compression)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"level", "logging:\n  level: loud\n", "logging.level"},
		{"format", "logging:\n  format: xml\n", "logging.format"},
		{"depth", "decode:\n  max_depth: -1\n", "decode.max_depth"},
		{"zstd level", "compression:\n  level: extreme\n", "compression.level"},
		{"yaml", "logging: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "barewire.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestConfig_ValidateAfterOverride(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v, want nil", err)
	}
	cfg.Logging.Level = "verbose"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("Validate() error = %v, want mention of logging.level", err)
	}
}
