package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/cboxdk/audioplay/internal/app"
	"github.com/cboxdk/audioplay/internal/config"
	"github.com/cboxdk/audioplay/internal/platform"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Version = "1.0.0-dev"
)

var errInterrupted = errors.New("interrupted")

// CLI represents the command line interface
type CLI struct {
	args []string
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

func main() {
	cli := &CLI{args: os.Args[1:]}
	commands := cli.commands()

	// No arguments runs an interactive play session
	commandName := "play"
	if len(cli.args) > 0 {
		commandName = cli.args[0]
	}

	// Handle help flag
	if commandName == "--help" || commandName == "-h" {
		cli.printUsage(commands)
		return
	}

	if _, exists := commands[commandName]; !exists {
		// Check if it's a flag for the play command
		if strings.HasPrefix(commandName, "--") {
			commandName = "play"
		} else {
			fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", commandName)
			cli.printUsage(commands)
			os.Exit(1)
		}
	} else if len(cli.args) > 0 {
		// Remove command name from args
		cli.args = cli.args[1:]
	}

	cmd := commands[commandName]
	if err := cmd.Run(cli.args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (cli *CLI) commands() map[string]*Command {
	return map[string]*Command{
		"play":           {Name: "play", Description: "Prompt for an audio file and play it (default)", Usage: "play [--config path] [--log-level level] [--platform name] [--no-wait]", Run: cli.playCommand},
		"validate":       {Name: "validate", Description: "Validate configuration file", Usage: "validate [--config path] [--verbose]", Run: cli.validateCommand},
		"example-config": {Name: "example-config", Description: "Generate example configuration file", Usage: "example-config [--output path]", Run: cli.exampleConfigCommand},
		"history":        {Name: "history", Description: "List recently played files", Usage: "history [--config path] [--limit n]", Run: cli.historyCommand},
		"version":        {Name: "version", Description: "Show version information", Usage: "version", Run: cli.versionCommand},
		"help":           {Name: "help", Description: "Show help information", Usage: "help [command]", Run: cli.helpCommand},
	}
}

func (cli *CLI) printUsage(commands map[string]*Command) {
	fmt.Printf("audioplay v%s\n", Version)
	fmt.Println("Plays an audio file with the player for the host operating system.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Printf("  %s <command> [options]\n", os.Args[0])
	fmt.Println()
	fmt.Println("COMMANDS:")

	commandOrder := []string{"play", "validate", "example-config", "history", "version", "help"}
	for _, name := range commandOrder {
		if cmd, exists := commands[name]; exists {
			fmt.Printf("  %-15s %s\n", cmd.Name, cmd.Description)
		}
	}

	fmt.Println()
	fmt.Println("GLOBAL OPTIONS:")
	fmt.Println("  --help, -h       Show help information")
	fmt.Println()
	fmt.Println("Use \"audioplay help <command>\" for more information about a command.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Printf("  %s\n", os.Args[0])
	fmt.Printf("  %s play --config ./audioplay.yaml --no-wait\n", os.Args[0])
	fmt.Printf("  %s validate --config ./audioplay.yaml\n", os.Args[0])
	fmt.Printf("  %s history --limit 5\n", os.Args[0])
}

func (cli *CLI) parseFlags(args []string, flags map[string]*string) []string {
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Handle --flag=value format
			if strings.Contains(flagName, "=") {
				parts := strings.SplitN(flagName, "=", 2)
				flagName = parts[0]
				if flagVar, exists := flags[flagName]; exists {
					*flagVar = parts[1]
				}
				continue
			}

			// Handle --flag value format
			if flagVar, exists := flags[flagName]; exists {
				if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
					*flagVar = args[i+1]
					i++ // Skip the value
				} else {
					// Boolean flag or missing value
					*flagVar = "true"
				}
				continue
			}
		}

		remaining = append(remaining, arg)
	}

	return remaining
}

// wantsHelp reports whether the remaining arguments ask for help
func wantsHelp(remaining []string) bool {
	for _, arg := range remaining {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

// loadConfig loads the file at path, or the defaults when path is empty
func (cli *CLI) loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("failed to load default configuration: %w", err)
		}
		return cfg, nil
	}

	if err := cli.validateConfigPath(path); err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (cli *CLI) playCommand(args []string) error {
	var configPath string
	var logLevel string
	var platformName string
	var noWait string

	flags := map[string]*string{
		"config":    &configPath,
		"log-level": &logLevel,
		"platform":  &platformName,
		"no-wait":   &noWait,
	}

	remaining := cli.parseFlags(args, flags)
	if wantsHelp(remaining) {
		cli.printPlayHelp()
		return nil
	}

	cfg, err := cli.loadConfig(configPath)
	if err != nil {
		return err
	}

	// Command line overrides
	if platformName != "" {
		cfg.Platform.Preferred = strings.ToLower(strings.TrimSpace(platformName))
	}
	if noWait == "true" {
		cfg.Session.WaitForKey = false
	}
	if logLevel == "" {
		logLevel = cfg.Logging.Level
	}

	logger, err := cli.createLogger(logLevel, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if configPath == "" {
		logger.Debug("Running in zero-config mode with defaults")
	} else {
		logger.Debug("Configuration loaded", zap.String("path", configPath))
	}

	manager, err := app.NewManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal", zap.String("signal", sig.String()))
			// A second signal gets the default behaviour
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("Starting audioplay",
		zap.String("version", Version),
		zap.String("preferred_platform", cfg.Platform.Preferred),
		zap.Bool("wait_for_key", cfg.Session.WaitForKey))

	session, runErr := manager.Run(ctx, os.Stdin, os.Stdout)

	if err := manager.Close(context.Background()); err != nil {
		logger.Warn("Shutdown incomplete", zap.Error(err))
	}

	if errors.Is(runErr, context.Canceled) {
		return errInterrupted
	}
	if runErr != nil {
		return runErr
	}

	logger.Debug("audioplay finished",
		zap.String("platform", session.Platform.String()),
		zap.String("outcome", session.Outcome))
	return nil
}

func (cli *CLI) validateCommand(args []string) error {
	var configPath string
	var verboseFlag = "false"

	flags := map[string]*string{
		"config":  &configPath,
		"verbose": &verboseFlag,
	}

	remaining := cli.parseFlags(args, flags)
	verbose := verboseFlag == "true"

	if wantsHelp(remaining) {
		cli.printValidateHelp()
		return nil
	}

	var cfg *config.Config
	var err error

	if configPath == "" {
		fmt.Println("🔍 Validating zero-config mode defaults")
		cfg, err = config.LoadDefault()
		if err != nil {
			return fmt.Errorf("default configuration validation failed: %w", err)
		}
	} else {
		if err := cli.validateConfigPath(configPath); err != nil {
			return err
		}

		fmt.Printf("🔍 Validating configuration file: %s\n", configPath)
		cfg, err = config.Load(configPath)
		if err != nil {
			var result *config.ValidationResult
			if errors.As(err, &result) {
				cli.printValidationResults(result, verbose)
				fmt.Printf("\n❌ Configuration validation failed with %d error(s)\n", len(result.Errors))
			}
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	validationResult := config.GetValidationResult(cfg)
	cli.printValidationResults(validationResult, verbose)

	if !validationResult.Valid {
		fmt.Printf("\n❌ Configuration validation failed with %d error(s)\n", len(validationResult.Errors))
		return fmt.Errorf("configuration validation failed")
	}

	if len(validationResult.Warnings) > 0 {
		fmt.Printf("\n⚠️  Found %d warning(s) - configuration is valid but could be improved\n", len(validationResult.Warnings))
	}

	cli.printConfigurationSummary(cfg)

	fmt.Println("\n✅ Configuration validation completed successfully!")
	return nil
}

// printValidationResults prints detailed validation results
func (cli *CLI) printValidationResults(result *config.ValidationResult, verbose bool) {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		fmt.Println("✅ Configuration passes all validation checks")
		return
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\n❌ VALIDATION ERRORS (%d):\n", len(result.Errors))
		for i, err := range result.Errors {
			fmt.Printf("  %d. Field: %s\n", i+1, err.Field)
			fmt.Printf("     Error: %s\n", err.Message)
			if err.Suggestion != "" {
				fmt.Printf("     Fix: %s\n", err.Suggestion)
			}
			if verbose && err.Value != nil {
				fmt.Printf("     Current value: %v\n", err.Value)
			}
			fmt.Println()
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\n⚠️  VALIDATION WARNINGS (%d):\n", len(result.Warnings))
		for i, warning := range result.Warnings {
			fmt.Printf("  %d. Field: %s\n", i+1, warning.Field)
			fmt.Printf("     Warning: %s\n", warning.Message)
			if warning.Suggestion != "" {
				fmt.Printf("     Suggestion: %s\n", warning.Suggestion)
			}
			if verbose && warning.Value != nil {
				fmt.Printf("     Current value: %v\n", warning.Value)
			}
			fmt.Println()
		}
	}
}

// printConfigurationSummary prints a summary of valid configuration
func (cli *CLI) printConfigurationSummary(cfg *config.Config) {
	fmt.Println("\n📋 CONFIGURATION SUMMARY:")

	resolved := platform.Resolve(cfg.Platform.Preferred)
	fmt.Printf("🖥️  Platform:\n")
	if cfg.Platform.Preferred == "" {
		fmt.Printf("   Resolved: %s (detected from %s)\n", resolved, runtime.GOOS)
	} else {
		fmt.Printf("   Resolved: %s (forced to %q)\n", resolved, cfg.Platform.Preferred)
	}
	if !resolved.IsSupported() {
		if cfg.Platform.Strict {
			fmt.Printf("   ❌ No player for this platform; runs will fail (strict)\n")
		} else {
			fmt.Printf("   ⚠️  No player for this platform; playback will be skipped\n")
		}
	}

	fmt.Printf("\n🎵 Player:\n")
	fmt.Printf("   Linux: %s %s\n", cfg.Player.Linux.Binary, strings.Join(cfg.Player.Linux.Flags, " "))
	if cfg.Player.Linux.Execute {
		fmt.Printf("   Launch: ✅ via %s -c (await exit: %t)\n", cfg.Player.Linux.Shell, cfg.Player.Linux.AwaitExit)
	} else {
		fmt.Printf("   Launch: ⚠️  Print only\n")
	}
	fmt.Printf("   Windows: %s\n", describeWindowsPlayer(cfg.Player.Windows))
	fmt.Printf("   Wait for key: %t\n", cfg.Session.WaitForKey)

	if cfg.History.Enabled {
		fmt.Printf("\n💾 History: ✅ %s (list limit %d)\n", cfg.History.DatabasePath, cfg.History.ListLimit)
	} else {
		fmt.Printf("\n💾 History: ⚠️  Disabled\n")
	}

	if cfg.Metrics.Enabled {
		fmt.Printf("\n📊 Metrics: ✅ %s\n", cfg.Metrics.TextfilePath)
	} else {
		fmt.Printf("\n📊 Metrics: ⚠️  Disabled\n")
	}

	if cfg.Telemetry.Enabled {
		fmt.Printf("\n🔭 Telemetry: ✅ Enabled (%s exporter)\n", cfg.Telemetry.Exporter.Type)
		fmt.Printf("   Service: %s v%s (%s)\n", cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
		fmt.Printf("   Sampling Rate: %.1f%%\n", cfg.Telemetry.Sampling.EffectiveRate()*100)
	} else {
		fmt.Printf("\n🔭 Telemetry: ⚠️  Disabled\n")
	}
}

// describeWindowsPlayer summarises the MCI command. The return buffer is
// sized in UTF-16 code units.
func describeWindowsPlayer(cfg config.WindowsPlayerConfig) string {
	return fmt.Sprintf("%s <file> (return buffer %d UTF-16 units, %d bytes)",
		cfg.CommandVerb, cfg.BufferSize, cfg.BufferSize*2)
}

func (cli *CLI) historyCommand(args []string) error {
	var configPath string
	var limitFlag string

	flags := map[string]*string{
		"config": &configPath,
		"limit":  &limitFlag,
	}

	remaining := cli.parseFlags(args, flags)
	if wantsHelp(remaining) {
		cli.printHistoryHelp()
		return nil
	}

	var limit int
	if limitFlag != "" {
		n, err := strconv.Atoi(limitFlag)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit: %s (must be a positive integer)", limitFlag)
		}
		limit = n
	}

	cfg, err := cli.loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("%w (set history.enabled: true in the configuration)", app.ErrHistoryDisabled)
	}

	logger, err := cli.createLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	manager, err := app.NewManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	defer manager.Close(context.Background())

	records, err := manager.History(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No plays recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYED AT\tPLATFORM\tOUTCOME\tDURATION\tFILE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.PlayedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Platform,
			rec.Outcome,
			rec.Duration,
			rec.FilePath)
	}
	return w.Flush()
}

func (cli *CLI) versionCommand(args []string) error {
	info := platform.DetectInfo()
	fmt.Printf("audioplay version %s\n", Version)
	fmt.Printf("Built with %s (%s)\n", info.Version, info.Compiler)
	fmt.Printf("Host: %s/%s, player platform: %s\n", info.OS, info.Architecture, info.Platform)
	return nil
}

func (cli *CLI) helpCommand(args []string) error {
	if len(args) == 0 {
		cli.printUsage(cli.commands())
		return nil
	}

	commandName := args[0]
	switch commandName {
	case "play":
		cli.printPlayHelp()
	case "validate":
		cli.printValidateHelp()
	case "example-config":
		cli.printExampleConfigHelp()
	case "history":
		cli.printHistoryHelp()
	case "version":
		fmt.Println("USAGE: audioplay version")
		fmt.Println("Show version information and build details.")
	default:
		fmt.Printf("Unknown command: %s\n\n", commandName)
		cli.printUsage(cli.commands())
	}

	return nil
}

func (cli *CLI) exampleConfigCommand(args []string) error {
	var outputPath = config.DefaultConfigPath

	flags := map[string]*string{
		"output": &outputPath,
	}

	remaining := cli.parseFlags(args, flags)
	if wantsHelp(remaining) {
		cli.printExampleConfigHelp()
		return nil
	}

	data, err := config.Example()
	if err != nil {
		return err
	}

	if outputPath == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("file already exists: %s (use a different path or remove the existing file)", outputPath)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Example configuration written to: %s\n", outputPath)
	fmt.Println("Edit the file to match your environment and use:")
	fmt.Printf("  audioplay validate --config %s\n", outputPath)
	return nil
}

func (cli *CLI) validateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path cannot be empty")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", path)
	}

	return nil
}

func (cli *CLI) createLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", level)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	switch strings.ToLower(format) {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid log format: %s (valid: json, console)", format)
	}

	return config.Build()
}

func (cli *CLI) printPlayHelp() {
	fmt.Println("USAGE: audioplay play [options]")
	fmt.Println("Select the player for this platform, prompt for a file path and play it.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --config path      Configuration file path (default: zero-config mode)")
	fmt.Println("  --log-level level  Log level: debug, info, warn, error (default: from config)")
	fmt.Println("  --platform name    Force the platform instead of detecting it (linux, windows)")
	fmt.Println("  --no-wait          Exit without waiting for a final key press")
	fmt.Println("  --help, -h         Show this help message")
	fmt.Println()
	fmt.Println("SIGNALS:")
	fmt.Println("  SIGINT/SIGTERM    Cancel playback and exit")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  audioplay")
	fmt.Println("  echo star.wav | audioplay play --no-wait")
	fmt.Println("  audioplay play --platform windows --log-level debug")
}

func (cli *CLI) printValidateHelp() {
	fmt.Println("USAGE: audioplay validate [options]")
	fmt.Println("Validate configuration file without playing anything.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --config path  Configuration file path (default: zero-config mode)")
	fmt.Println("  --verbose      Show detailed validation output including current values")
	fmt.Println("  --help, -h     Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  audioplay validate")
	fmt.Println("  audioplay validate --config ./audioplay.yaml --verbose")
}

func (cli *CLI) printExampleConfigHelp() {
	fmt.Println("USAGE: audioplay example-config [options]")
	fmt.Println("Generate an example configuration file with every default filled in.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --output path  Output file path, or - for stdout (default: audioplay.yaml)")
	fmt.Println("  --help, -h     Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  audioplay example-config")
	fmt.Println("  audioplay example-config --output -")
}

func (cli *CLI) printHistoryHelp() {
	fmt.Println("USAGE: audioplay history [options]")
	fmt.Println("List the most recent plays, newest first. Requires history.enabled.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --config path  Configuration file path (default: zero-config mode)")
	fmt.Println("  --limit n      Number of plays to list (default: history.list_limit)")
	fmt.Println("  --help, -h     Show this help message")
}
