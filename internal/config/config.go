package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Platform  PlatformConfig  `yaml:"platform"`
	Player    PlayerConfig    `yaml:"player"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	History   HistoryConfig   `yaml:"history"`
}

// PlatformConfig controls platform detection
type PlatformConfig struct {
	Preferred string `yaml:"preferred"` // overrides runtime detection when set
	Strict    bool   `yaml:"strict"`    // fail the run on unsupported platforms
}

// PlayerConfig contains per-platform player settings
type PlayerConfig struct {
	Linux   LinuxPlayerConfig   `yaml:"linux"`
	Windows WindowsPlayerConfig `yaml:"windows"`
}

// LinuxPlayerConfig configures the mpg123 command line
type LinuxPlayerConfig struct {
	Binary    string   `yaml:"binary"`
	Flags     []string `yaml:"flags"`
	Execute   bool     `yaml:"execute"`
	Shell     string   `yaml:"shell"`
	AwaitExit bool     `yaml:"await_exit"`
}

// WindowsPlayerConfig configures the MCI command
type WindowsPlayerConfig struct {
	CommandVerb string `yaml:"command_verb"`
	BufferSize  int    `yaml:"buffer_size"`
}

// SessionConfig contains console interaction settings
type SessionConfig struct {
	WaitForKey bool `yaml:"wait_for_key"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	Enabled        bool                    `yaml:"enabled"`
	ServiceName    string                  `yaml:"service_name"`
	ServiceVersion string                  `yaml:"service_version"`
	Environment    string                  `yaml:"environment"`
	Exporter       TelemetryExporterConfig `yaml:"exporter"`
	Sampling       TelemetrySamplingConfig `yaml:"sampling"`
}

// TelemetryExporterConfig configures the span exporter
type TelemetryExporterConfig struct {
	Type     string            `yaml:"type"`
	Endpoint string            `yaml:"endpoint,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// TelemetrySamplingConfig configures trace sampling
type TelemetrySamplingConfig struct {
	Rate *float64 `yaml:"rate"` // nil means DefaultSamplingRate; 0 drops every span
}

// EffectiveRate returns the configured rate, or DefaultSamplingRate when unset
func (c TelemetrySamplingConfig) EffectiveRate() float64 {
	if c.Rate == nil {
		return DefaultSamplingRate
	}
	return *c.Rate
}

// MetricsConfig controls the Prometheus textfile output
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
}

// HistoryConfig controls the SQLite play history
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
	ListLimit    int    `yaml:"list_limit"`
}

// LoadDefault creates a zero-configuration setup with all defaults
func LoadDefault() (*Config, error) {
	cfg := Default()

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid default configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.Session.WaitForKey = true
	applyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration data, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	// Absent keys keep these values; yaml only overwrites what it sees
	cfg := Config{Session: SessionConfig{WaitForKey: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := ensureConfigDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("directory creation failed: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Example returns the default configuration rendered as YAML
func Example() ([]byte, error) {
	cfg := Default()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal example config: %w", err)
	}
	return data, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	cfg.Platform.Preferred = strings.ToLower(strings.TrimSpace(cfg.Platform.Preferred))

	// Player defaults
	if cfg.Player.Linux.Binary == "" {
		cfg.Player.Linux.Binary = DefaultLinuxBinary
	}
	if cfg.Player.Linux.Flags == nil {
		cfg.Player.Linux.Flags = []string{"-q"}
	}
	if cfg.Player.Linux.Shell == "" {
		cfg.Player.Linux.Shell = DefaultLinuxShell
	}
	if cfg.Player.Windows.CommandVerb == "" {
		cfg.Player.Windows.CommandVerb = DefaultCommandVerb
	}
	if cfg.Player.Windows.BufferSize == 0 {
		cfg.Player.Windows.BufferSize = DefaultBufferSize
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Telemetry defaults
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "1.0.0"
	}
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = EnvDevelopment
	}
	if cfg.Telemetry.Exporter.Type == "" {
		cfg.Telemetry.Exporter.Type = ExporterTypeStdout
	}
	if cfg.Telemetry.Sampling.Rate == nil {
		rate := DefaultSamplingRate
		cfg.Telemetry.Sampling.Rate = &rate
	}

	// History defaults
	if cfg.History.DatabasePath == "" {
		cfg.History.DatabasePath = DefaultDatabasePath
	}
	if cfg.History.ListLimit == 0 {
		cfg.History.ListLimit = DefaultHistoryListLimit
	}
}

// ValidationError represents a structured validation error
type ValidationError struct {
	Field      string      // Configuration field path (e.g., "player.linux.binary")
	Value      interface{} // Invalid value
	Message    string      // Human-readable error message
	Suggestion string      // Suggested fix
}

// ValidationResult contains the results of configuration validation
type ValidationResult struct {
	Valid    bool              // Overall validation status
	Errors   []ValidationError // List of validation errors
	Warnings []ValidationError // List of validation warnings
}

// Error implements the error interface for ValidationResult
func (vr *ValidationResult) Error() string {
	if len(vr.Errors) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d error(s):\n", len(vr.Errors)))

	for i, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s", i+1, err.Field, err.Message))
		if err.Suggestion != "" {
			sb.WriteString(fmt.Sprintf(" (suggestion: %s)", err.Suggestion))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// validate checks the configuration for required fields and consistency
func validate(cfg *Config) error {
	result := validateConfiguration(cfg)
	if !result.Valid {
		return result
	}
	return nil
}

// validateConfiguration performs comprehensive validation and returns detailed results
func validateConfiguration(cfg *Config) *ValidationResult {
	result := &ValidationResult{Valid: true}

	validatePlatformConfig(&cfg.Platform, result)
	validatePlayerConfig(&cfg.Player, result)
	validateLoggingConfig(&cfg.Logging, result)
	validateTelemetryConfig(&cfg.Telemetry, result)
	validateMetricsConfig(&cfg.Metrics, result)
	validateHistoryConfig(&cfg.History, result)

	result.Valid = len(result.Errors) == 0

	return result
}

// validatePlatformConfig validates the platform override
func validatePlatformConfig(cfg *PlatformConfig, result *ValidationResult) {
	switch cfg.Preferred {
	case "", "linux", "windows":
	default:
		result.Warnings = append(result.Warnings, ValidationError{
			Field:      "platform.preferred",
			Value:      cfg.Preferred,
			Message:    "no player exists for this platform, playback will be skipped",
			Suggestion: "use 'linux', 'windows' or leave empty for detection",
		})
	}
}

// validatePlayerConfig validates player settings
func validatePlayerConfig(cfg *PlayerConfig, result *ValidationResult) {
	if err := validateStringNotEmpty(cfg.Linux.Binary, "player.linux.binary"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if binary := strings.TrimSpace(cfg.Linux.Binary); binary != "" && strings.ContainsAny(binary, " \t'\"") {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:      "player.linux.binary",
			Value:      cfg.Linux.Binary,
			Message:    "binary contains whitespace or quotes and will be split by the shell",
			Suggestion: "move arguments into player.linux.flags",
		})
	}

	if cfg.Linux.Execute {
		if err := validateStringNotEmpty(cfg.Linux.Shell, "player.linux.shell"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}
	if cfg.Linux.AwaitExit && !cfg.Linux.Execute {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:      "player.linux.await_exit",
			Value:      cfg.Linux.AwaitExit,
			Message:    "await_exit has no effect while execute is disabled",
			Suggestion: "enable player.linux.execute or drop await_exit",
		})
	}

	if err := validateStringNotEmpty(cfg.Windows.CommandVerb, "player.windows.command_verb"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if err := validatePositiveInt(cfg.Windows.BufferSize, "player.windows.buffer_size"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
}

// validateLoggingConfig validates logging configuration
func validateLoggingConfig(cfg *LoggingConfig, result *ValidationResult) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}

	if !validLevels[strings.ToLower(cfg.Level)] {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "logging.level",
			Value:      cfg.Level,
			Message:    "invalid log level",
			Suggestion: "use 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{
		"json": true, "console": true,
	}

	if !validFormats[strings.ToLower(cfg.Format)] {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "logging.format",
			Value:      cfg.Format,
			Message:    "invalid log format",
			Suggestion: "use 'json' or 'console'",
		})
	}
}

// validateTelemetryConfig validates telemetry configuration
func validateTelemetryConfig(cfg *TelemetryConfig, result *ValidationResult) {
	if !cfg.Enabled {
		return
	}

	if err := validateStringNotEmpty(cfg.ServiceName, "telemetry.service_name"); err != nil {
		result.Errors = append(result.Errors, *err)
	}

	switch cfg.Exporter.Type {
	case ExporterTypeStdout:
	case ExporterTypeOTLP:
		if cfg.Exporter.Endpoint == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:      "telemetry.exporter.endpoint",
				Value:      cfg.Exporter.Endpoint,
				Message:    "OTLP exporter requires an endpoint",
				Suggestion: "set an endpoint like 'localhost:4318'",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:      "telemetry.exporter.type",
			Value:      cfg.Exporter.Type,
			Message:    "unsupported exporter type",
			Suggestion: "use 'stdout' or 'otlp'",
		})
	}

	if rate := cfg.Sampling.EffectiveRate(); rate < 0 || rate > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "telemetry.sampling.rate",
			Value:      rate,
			Message:    "sampling rate must be between 0.0 and 1.0",
			Suggestion: "use a value like 1.0 to trace every run",
		})
	}
}

// validateMetricsConfig validates the metrics textfile settings
func validateMetricsConfig(cfg *MetricsConfig, result *ValidationResult) {
	if !cfg.Enabled {
		return
	}

	if err := validateStringNotEmpty(cfg.TextfilePath, "metrics.textfile_path"); err != nil {
		err.Suggestion = "point at a node_exporter textfile collector file like '/var/lib/node_exporter/audioplay.prom'"
		result.Errors = append(result.Errors, *err)
		return
	}

	if filepath.Ext(cfg.TextfilePath) != ".prom" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:      "metrics.textfile_path",
			Value:      cfg.TextfilePath,
			Message:    "node_exporter only reads files ending in .prom",
			Suggestion: "rename the file with a .prom extension",
		})
	}
}

// validateHistoryConfig validates play history settings
func validateHistoryConfig(cfg *HistoryConfig, result *ValidationResult) {
	if cfg.ListLimit <= 0 || cfg.ListLimit > MaxHistoryListLimit {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "history.list_limit",
			Value:      cfg.ListLimit,
			Message:    fmt.Sprintf("list limit must be between 1 and %d", MaxHistoryListLimit),
			Suggestion: fmt.Sprintf("use the default of %d", DefaultHistoryListLimit),
		})
	}

	if !cfg.Enabled {
		return
	}

	if err := validateStringNotEmpty(cfg.DatabasePath, "history.database_path"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
}

// validatePositiveInt validates a positive integer
func validatePositiveInt(value int, fieldName string) *ValidationError {
	if value <= 0 {
		return &ValidationError{
			Field:      fieldName,
			Value:      value,
			Message:    "value must be positive",
			Suggestion: "use a value > 0",
		}
	}
	return nil
}

// validateStringNotEmpty validates a string is not empty
func validateStringNotEmpty(value, fieldName string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:      fieldName,
			Value:      value,
			Message:    "value cannot be empty",
			Suggestion: "provide a non-empty value",
		}
	}
	return nil
}

// GetValidationResult returns detailed validation results for external use
func GetValidationResult(cfg *Config) *ValidationResult {
	return validateConfiguration(cfg)
}

// ensureConfigDirectories creates parent directories for enabled output files
func ensureConfigDirectories(cfg *Config) error {
	var paths []string

	if cfg.History.Enabled && cfg.History.DatabasePath != ":memory:" {
		paths = append(paths, cfg.History.DatabasePath)
	}
	if cfg.Metrics.Enabled {
		paths = append(paths, cfg.Metrics.TextfilePath)
	}

	for _, path := range paths {
		if path == "" {
			continue
		}

		dir := filepath.Dir(path)
		if dir != "." && dir != "/" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating directory %s for path %s: %w", dir, path, err)
			}
		}
	}

	return nil
}
