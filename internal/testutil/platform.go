// Package testutil provides cross-platform testing utilities
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cboxdk/audioplay/internal/config"
	"github.com/cboxdk/audioplay/internal/platform"
	"github.com/cboxdk/audioplay/internal/player"
)

// PlatformTest represents a test that runs once per forced platform
type PlatformTest struct {
	Name       string
	Platforms  []platform.Platform // Platforms to force (empty = all)
	TestFunc   func(t *testing.T, p platform.Platform)
	SkipReason string
}

// PlatformTestSuite manages a collection of platform tests
type PlatformTestSuite struct {
	Tests []PlatformTest
}

// AllPlatforms lists every platform value, including Unsupported
var AllPlatforms = []platform.Platform{platform.Linux, platform.Windows, platform.Unsupported}

// RunPlatformTests executes each test for each of its platforms. Platforms
// are forced through configuration, so every case runs on every host.
func RunPlatformTests(t *testing.T, suite PlatformTestSuite) {
	for _, test := range suite.Tests {
		t.Run(test.Name, func(t *testing.T) {
			if test.SkipReason != "" {
				t.Skip(test.SkipReason)
			}

			platforms := test.Platforms
			if len(platforms) == 0 {
				platforms = AllPlatforms
			}

			for _, p := range platforms {
				t.Run(p.String(), func(t *testing.T) {
					test.TestFunc(t, p)
				})
			}
		})
	}
}

// PreferredName returns a platform.preferred value that resolves to p.
// Unsupported maps to an OS name with no player.
func PreferredName(p platform.Platform) string {
	if p == platform.Unsupported {
		return "plan9"
	}
	return p.String()
}

// NewTestConfig returns the default configuration forced to p, with the
// exit key wait disabled and all outputs kept under t.TempDir
func NewTestConfig(t *testing.T, p platform.Platform) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Platform.Preferred = PreferredName(p)
	cfg.Session.WaitForKey = false
	cfg.Logging.Level = "debug"
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "audioplay.prom")
	cfg.History.DatabasePath = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

// WriteConfig writes YAML content to a temporary config file and returns
// its path
func WriteConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "audioplay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// RecordingSender captures MCI commands instead of calling winmm
type RecordingSender struct {
	Code int

	mu          sync.Mutex
	commands    []string
	bufferSizes []int
}

// SendString records the command and returns Code
func (s *RecordingSender) SendString(command string, bufferSize int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	s.bufferSizes = append(s.bufferSizes, bufferSize)
	return s.Code
}

// Commands returns the commands sent so far
func (s *RecordingSender) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// BufferSizes returns the buffer size passed with each command
func (s *RecordingSender) BufferSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.bufferSizes...)
}

// RecordingRunner captures shell launches instead of starting processes
type RecordingRunner struct {
	StartErr error
	WaitErr  error

	mu       sync.Mutex
	shells   []string
	commands []string
}

type recordedProcess struct {
	err error
}

func (p recordedProcess) Wait() error { return p.err }

// Start records the launch and returns a process that exits with WaitErr
func (r *RecordingRunner) Start(ctx context.Context, shell, command string) (player.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shells = append(r.shells, shell)
	r.commands = append(r.commands, command)
	if r.StartErr != nil {
		return nil, r.StartErr
	}
	return recordedProcess{err: r.WaitErr}, nil
}

// Commands returns the launched command lines
func (r *RecordingRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// Shells returns the shell used for each launch
func (r *RecordingRunner) Shells() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shells...)
}

var (
	_ player.MCISender     = (*RecordingSender)(nil)
	_ player.CommandRunner = (*RecordingRunner)(nil)
)
