package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
platform:
  preferred: "Linux"

player:
  linux:
    binary: "mpg123"
    flags: ["-q", "--no-control"]
    execute: false
  windows:
    buffer_size: 4096

session:
  wait_for_key: false

logging:
  level: "debug"
  format: "console"

metrics:
  enabled: true
  textfile_path: '` + filepath.Join(tmpDir, "textfile", "audioplay.prom") + `'

history:
  enabled: true
  database_path: '` + filepath.Join(tmpDir, "data", "history.db") + `'
  list_limit: 5
`

	configPath := filepath.Join(tmpDir, "audioplay.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Platform.Preferred != "linux" {
		t.Errorf("Expected preferred platform 'linux', got %q", cfg.Platform.Preferred)
	}
	if got := strings.Join(cfg.Player.Linux.Flags, " "); got != "-q --no-control" {
		t.Errorf("Unexpected linux flags: %q", got)
	}
	if cfg.Player.Windows.BufferSize != 4096 {
		t.Errorf("Expected buffer size 4096, got %d", cfg.Player.Windows.BufferSize)
	}
	if cfg.Player.Windows.CommandVerb != DefaultCommandVerb {
		t.Errorf("Expected default command verb, got %q", cfg.Player.Windows.CommandVerb)
	}
	if cfg.Session.WaitForKey {
		t.Error("Expected wait_for_key to be disabled")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.History.ListLimit != 5 {
		t.Errorf("Expected list limit 5, got %d", cfg.History.ListLimit)
	}

	// Parent directories for enabled outputs are created on load
	for _, dir := range []string{"textfile", "data"} {
		if _, err := os.Stat(filepath.Join(tmpDir, dir)); err != nil {
			t.Errorf("Expected directory %s to exist: %v", dir, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("player: [unclosed"))
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestParseKeepsSessionDefault(t *testing.T) {
	cfg, err := Parse([]byte("logging:\n  level: warn\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.Session.WaitForKey {
		t.Error("wait_for_key should default to true when absent")
	}
}

func TestParseSamplingRate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want float64
	}{
		{"absent uses default", "telemetry:\n  enabled: false\n", DefaultSamplingRate},
		{"explicit zero is kept", "telemetry:\n  sampling:\n    rate: 0\n", 0},
		{"explicit fraction", "telemetry:\n  sampling:\n    rate: 0.25\n", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if cfg.Telemetry.Sampling.Rate == nil {
				t.Fatal("rate should be set after defaults")
			}
			if got := cfg.Telemetry.Sampling.EffectiveRate(); got != tt.want {
				t.Errorf("rate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse([]byte("logging:\n  level: loud\n"))
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var vr *ValidationResult
	if !errors.As(err, &vr) {
		t.Fatalf("Expected ValidationResult in chain, got %T", err)
	}
	if vr.Errors[0].Field != "logging.level" {
		t.Errorf("Unexpected field: %s", vr.Errors[0].Field)
	}
}

func TestLoadDefault(t *testing.T) {
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}

	if cfg.Platform.Preferred != "" {
		t.Errorf("Default must detect the platform, got preferred %q", cfg.Platform.Preferred)
	}
	if cfg.Player.Linux.Binary != DefaultLinuxBinary {
		t.Errorf("Expected binary %s, got %s", DefaultLinuxBinary, cfg.Player.Linux.Binary)
	}
	if len(cfg.Player.Linux.Flags) != 1 || cfg.Player.Linux.Flags[0] != "-q" {
		t.Errorf("Unexpected default flags: %v", cfg.Player.Linux.Flags)
	}
	if cfg.Player.Linux.Execute {
		t.Error("Execution must be opt-in")
	}
	if cfg.Player.Windows.BufferSize != DefaultBufferSize {
		t.Errorf("Expected buffer size %d, got %d", DefaultBufferSize, cfg.Player.Windows.BufferSize)
	}
	if !cfg.Session.WaitForKey {
		t.Error("Expected wait_for_key by default")
	}
	if cfg.Telemetry.Enabled || cfg.Metrics.Enabled || cfg.History.Enabled {
		t.Error("Ambient outputs must be disabled by default")
	}
}

func TestExampleRoundTrips(t *testing.T) {
	data, err := Example()
	if err != nil {
		t.Fatalf("Example failed: %v", err)
	}

	for _, key := range []string{"platform:", "player:", "mpg123", "buffer_size: 1048576", "wait_for_key: true"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Example config missing %q", key)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Example config does not parse: %v", err)
	}

	var want Config
	if err := yaml.Unmarshal(data, &want); err != nil {
		t.Fatal(err)
	}
	if cfg.Player.Linux.Binary != want.Player.Linux.Binary {
		t.Errorf("Binary changed on parse: %q vs %q", cfg.Player.Linux.Binary, want.Player.Linux.Binary)
	}
}
