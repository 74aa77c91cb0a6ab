package player

import (
	"context"
	"fmt"
	"io"

	"github.com/cboxdk/audioplay/internal/platform"
	"go.uber.org/zap"
)

// Windows player defaults
const (
	DefaultCommandVerb = "Play"
	DefaultBufferSize  = 1024 * 1024
)

// Result codes reported when winmm could not be called at all
const (
	MCIUnavailable    = -1
	MCIInvalidCommand = -2
)

// MCISender sends a command string to the Media Control Interface and
// returns its raw status code
type MCISender interface {
	SendString(command string, bufferSize int) int
}

// WindowsOptions configures the Windows player
type WindowsOptions struct {
	CommandVerb string
	BufferSize  int
	Sender      MCISender
}

func (o WindowsOptions) withDefaults() WindowsOptions {
	if o.CommandVerb == "" {
		o.CommandVerb = DefaultCommandVerb
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Sender == nil {
		o.Sender = defaultMCISender()
	}
	return o
}

// WindowsCreator builds players that use the winmm MCI API
type WindowsCreator struct {
	opts   WindowsOptions
	out    io.Writer
	logger *zap.Logger
}

// NewWindowsCreator creates a Windows player creator
func NewWindowsCreator(opts Options) *WindowsCreator {
	return &WindowsCreator{
		opts:   opts.Windows.withDefaults(),
		out:    opts.output(),
		logger: opts.logger(),
	}
}

// CreatePlayer returns a new WindowsPlayer
func (c *WindowsCreator) CreatePlayer() Player {
	return &WindowsPlayer{
		opts:   c.opts,
		out:    c.out,
		logger: c.logger,
	}
}

// Platform returns platform.Windows
func (c *WindowsCreator) Platform() platform.Platform {
	return platform.Windows
}

// WindowsPlayer sends "Play <file>" to MCI and prints the status code
type WindowsPlayer struct {
	opts   WindowsOptions
	out    io.Writer
	logger *zap.Logger
}

// Command returns the MCI command string for fileName
func (p *WindowsPlayer) Command(fileName string) string {
	return fmt.Sprintf("%s %s", p.opts.CommandVerb, fileName)
}

// Play sends the MCI command. The status code is printed, never interpreted.
func (p *WindowsPlayer) Play(ctx context.Context, fileName string) *Future {
	command := p.Command(fileName)
	code := p.opts.Sender.SendString(command, p.opts.BufferSize)

	p.logger.Debug("MCI command sent",
		zap.String("command", command),
		zap.Int("result_code", code))

	fmt.Fprintln(p.out, code)
	return Resolved(nil)
}

var (
	_ Creator = (*WindowsCreator)(nil)
	_ Player  = (*WindowsPlayer)(nil)
)
