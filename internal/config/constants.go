package config

import "time"

// Application constants for configuration and resource management
const (
	// Timeouts
	DefaultShutdownTimeout = 5 * time.Second // Bounds Manager.Close

	// Configuration Defaults
	DefaultConfigPath   = "audioplay.yaml" // Default configuration file path
	DefaultServiceName  = "audioplay"      // Default telemetry service name
	DefaultSamplingRate = 1.0              // Every run is a single trace

	// Player Defaults
	DefaultLinuxBinary = "mpg123"
	DefaultLinuxShell  = "/bin/bash"
	DefaultCommandVerb = "Play"
	DefaultBufferSize  = 1024 * 1024 // Return buffer handed to mciSendString

	// History Defaults
	DefaultDatabasePath     = "./audioplay.db"
	DefaultHistoryListLimit = 20
	MaxHistoryListLimit     = 1000
)

// Environment-specific constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Telemetry exporter types
const (
	ExporterTypeStdout = "stdout"
	ExporterTypeOTLP   = "otlp"
)
