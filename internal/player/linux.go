package player

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/cboxdk/audioplay/internal/platform"
	"go.uber.org/zap"
)

// Linux player defaults
const (
	DefaultLinuxBinary = "mpg123"
	DefaultLinuxShell  = "/bin/bash"
)

// DefaultLinuxFlags are passed to the player binary before the file name
var DefaultLinuxFlags = []string{"-q"}

// LinuxOptions configures the Linux player
type LinuxOptions struct {
	Binary    string
	Flags     []string
	Execute   bool // also launch the command through Shell
	Shell     string
	AwaitExit bool // resolve the future only once the launched process exits
	Runner    CommandRunner
}

func (o LinuxOptions) withDefaults() LinuxOptions {
	if o.Binary == "" {
		o.Binary = DefaultLinuxBinary
	}
	if o.Flags == nil {
		o.Flags = append([]string(nil), DefaultLinuxFlags...)
	}
	if o.Shell == "" {
		o.Shell = DefaultLinuxShell
	}
	if o.Runner == nil {
		o.Runner = ShellRunner{}
	}
	return o
}

// Process is a launched player command
type Process interface {
	Wait() error
}

// CommandRunner starts a command line through a shell
type CommandRunner interface {
	Start(ctx context.Context, shell, command string) (Process, error)
}

// ShellRunner runs commands with "<shell> -c <command>"
type ShellRunner struct{}

// Start launches the command without waiting for it
func (ShellRunner) Start(ctx context.Context, shell, command string) (Process, error) {
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// LinuxCreator builds players that drive mpg123
type LinuxCreator struct {
	opts   LinuxOptions
	out    io.Writer
	logger *zap.Logger
}

// NewLinuxCreator creates a Linux player creator
func NewLinuxCreator(opts Options) *LinuxCreator {
	return &LinuxCreator{
		opts:   opts.Linux.withDefaults(),
		out:    opts.output(),
		logger: opts.logger(),
	}
}

// CreatePlayer returns a new LinuxPlayer
func (c *LinuxCreator) CreatePlayer() Player {
	return &LinuxPlayer{
		opts:   c.opts,
		out:    c.out,
		logger: c.logger,
	}
}

// Platform returns platform.Linux
func (c *LinuxCreator) Platform() platform.Platform {
	return platform.Linux
}

// LinuxPlayer prints the mpg123 command for a file and optionally runs it
type LinuxPlayer struct {
	opts   LinuxOptions
	out    io.Writer
	logger *zap.Logger
}

// CommandLine returns the shell command used to play fileName.
// The name is wrapped in single quotes without escaping, so a name that
// itself contains a single quote breaks out of the quoting.
func (p *LinuxPlayer) CommandLine(fileName string) string {
	parts := append([]string{p.opts.Binary}, p.opts.Flags...)
	return fmt.Sprintf("%s '%s'", strings.Join(parts, " "), fileName)
}

// Play prints the command line and, when execution is enabled, launches it
func (p *LinuxPlayer) Play(ctx context.Context, fileName string) *Future {
	command := p.CommandLine(fileName)

	fmt.Fprintln(p.out, "Playing audio via the following command:")
	fmt.Fprintln(p.out, command)

	if !p.opts.Execute {
		return Resolved(nil)
	}

	proc, err := p.opts.Runner.Start(ctx, p.opts.Shell, command)
	if err != nil {
		p.logger.Warn("Failed to launch player command",
			zap.String("shell", p.opts.Shell),
			zap.String("command", command),
			zap.Error(err))
		return Resolved(fmt.Errorf("failed to start %s: %w", p.opts.Binary, err))
	}

	p.logger.Debug("Player command launched", zap.String("command", command))

	if !p.opts.AwaitExit {
		return Resolved(nil)
	}
	return Go(proc.Wait)
}

var (
	_ Creator = (*LinuxCreator)(nil)
	_ Player  = (*LinuxPlayer)(nil)
)
