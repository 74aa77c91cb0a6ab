package player

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cboxdk/audioplay/internal/platform"
	"go.uber.org/zap/zaptest"
)

// recordingSender captures MCI commands instead of calling winmm
type recordingSender struct {
	mu         sync.Mutex
	commands   []string
	bufferSize int
	code       int
}

func (s *recordingSender) SendString(command string, bufferSize int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	s.bufferSize = bufferSize
	return s.code
}

// fakeRunner records launched command lines
type fakeRunner struct {
	shell    string
	commands []string
	startErr error
	waitErr  error
	release  chan struct{}
}

type fakeProcess struct {
	err     error
	release chan struct{}
}

func (p *fakeProcess) Wait() error {
	if p.release != nil {
		<-p.release
	}
	return p.err
}

func (r *fakeRunner) Start(ctx context.Context, shell, command string) (Process, error) {
	r.shell = shell
	r.commands = append(r.commands, command)
	if r.startErr != nil {
		return nil, r.startErr
	}
	return &fakeProcess{err: r.waitErr, release: r.release}, nil
}

func testOptions(t *testing.T, out *bytes.Buffer) Options {
	return Options{
		Output:  out,
		Logger:  zaptest.NewLogger(t),
		Windows: WindowsOptions{Sender: &recordingSender{}},
	}
}

func TestNewCreatorSelectsMatchingVariant(t *testing.T) {
	tests := []struct {
		name     string
		platform platform.Platform
		check    func(Player) bool
	}{
		{
			name:     "linux",
			platform: platform.Linux,
			check: func(p Player) bool {
				_, ok := p.(*LinuxPlayer)
				return ok
			},
		},
		{
			name:     "windows",
			platform: platform.Windows,
			check: func(p Player) bool {
				_, ok := p.(*WindowsPlayer)
				return ok
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			creator, err := NewCreator(tt.platform, testOptions(t, &out))
			if err != nil {
				t.Fatalf("NewCreator failed: %v", err)
			}
			if creator.Platform() != tt.platform {
				t.Errorf("creator platform = %s, want %s", creator.Platform(), tt.platform)
			}

			p := creator.CreatePlayer()
			if !tt.check(p) {
				t.Errorf("CreatePlayer returned %T for %s", p, tt.platform)
			}
		})
	}
}

func TestCreatorsNeverMixVariants(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)

	if _, ok := NewLinuxCreator(opts).CreatePlayer().(*WindowsPlayer); ok {
		t.Error("LinuxCreator produced a WindowsPlayer")
	}
	if _, ok := NewWindowsCreator(opts).CreatePlayer().(*LinuxPlayer); ok {
		t.Error("WindowsCreator produced a LinuxPlayer")
	}
}

func TestCreatePlayerReturnsFreshInstances(t *testing.T) {
	var out bytes.Buffer
	creator := NewLinuxCreator(testOptions(t, &out))

	a := creator.CreatePlayer()
	b := creator.CreatePlayer()
	if a == b {
		t.Error("CreatePlayer returned the same instance twice")
	}
}

func TestNewCreatorUnsupported(t *testing.T) {
	var out bytes.Buffer
	creator, err := NewCreator(platform.Unsupported, testOptions(t, &out))
	if creator != nil {
		t.Errorf("expected no creator, got %T", creator)
	}
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}

	var upe *UnsupportedPlatformError
	if !errors.As(err, &upe) {
		t.Fatalf("expected *UnsupportedPlatformError, got %T", err)
	}
	if upe.Platform != platform.Unsupported {
		t.Errorf("error platform = %s", upe.Platform)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestLinuxPlayerPrintsCommand(t *testing.T) {
	var out bytes.Buffer
	p := NewLinuxCreator(testOptions(t, &out)).CreatePlayer()

	if err := p.Play(context.Background(), "star.wav").Wait(context.Background()); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if lines[0] != "Playing audio via the following command:" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "mpg123 -q 'star.wav'" {
		t.Errorf("unexpected command: %q", lines[1])
	}
}

func TestLinuxPlayerEmptyPath(t *testing.T) {
	var out bytes.Buffer
	p := NewLinuxCreator(testOptions(t, &out)).CreatePlayer()

	f := p.Play(context.Background(), "")
	select {
	case <-f.Done():
	default:
		t.Fatal("print-only play must resolve immediately")
	}
	if f.Err() != nil {
		t.Errorf("unexpected error: %v", f.Err())
	}
	if !strings.Contains(out.String(), "mpg123 -q ''\n") {
		t.Errorf("output does not reflect empty path: %q", out.String())
	}
}

func TestLinuxPlayerDoesNotEscapeQuotes(t *testing.T) {
	var out bytes.Buffer
	lp := NewLinuxCreator(testOptions(t, &out)).CreatePlayer().(*LinuxPlayer)

	got := lp.CommandLine("it's.mp3")
	if got != "mpg123 -q 'it's.mp3'" {
		t.Errorf("CommandLine = %q", got)
	}
}

func TestLinuxPlayerCustomBinary(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(t, &out)
	opts.Linux = LinuxOptions{Binary: "mpv", Flags: []string{"--no-video", "--really-quiet"}}

	lp := NewLinuxCreator(opts).CreatePlayer().(*LinuxPlayer)
	if got := lp.CommandLine("a.ogg"); got != "mpv --no-video --really-quiet 'a.ogg'" {
		t.Errorf("CommandLine = %q", got)
	}

	opts.Linux = LinuxOptions{Flags: []string{}}
	lp = NewLinuxCreator(opts).CreatePlayer().(*LinuxPlayer)
	if got := lp.CommandLine("a.ogg"); got != "mpg123 'a.ogg'" {
		t.Errorf("CommandLine without flags = %q", got)
	}
}

func TestLinuxPlayerExecute(t *testing.T) {
	var out bytes.Buffer
	runner := &fakeRunner{}
	opts := testOptions(t, &out)
	opts.Linux = LinuxOptions{Execute: true, Runner: runner}

	err := NewLinuxCreator(opts).CreatePlayer().Play(context.Background(), "star.wav").Wait(context.Background())
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if runner.shell != DefaultLinuxShell {
		t.Errorf("shell = %q, want %q", runner.shell, DefaultLinuxShell)
	}
	if len(runner.commands) != 1 || runner.commands[0] != "mpg123 -q 'star.wav'" {
		t.Errorf("commands = %q", runner.commands)
	}
}

func TestLinuxPlayerExecutePassesCommandUnchanged(t *testing.T) {
	var out bytes.Buffer
	runner := &fakeRunner{}
	opts := testOptions(t, &out)
	opts.Linux = LinuxOptions{Execute: true, Runner: runner}

	name := `say "hi" it's.mp3`
	err := NewLinuxCreator(opts).CreatePlayer().Play(context.Background(), name).Wait(context.Background())
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	want := `mpg123 -q 'say "hi" it's.mp3'`
	if len(runner.commands) != 1 || runner.commands[0] != want {
		t.Errorf("launched %q, want %q", runner.commands, want)
	}
	if !strings.Contains(out.String(), want+"\n") {
		t.Errorf("printed and launched commands must match:\n%s", out.String())
	}
}

func TestLinuxPlayerExecuteStartFailure(t *testing.T) {
	var out bytes.Buffer
	runner := &fakeRunner{startErr: errors.New("no such file")}
	opts := testOptions(t, &out)
	opts.Linux = LinuxOptions{Execute: true, Runner: runner}

	f := NewLinuxCreator(opts).CreatePlayer().Play(context.Background(), "star.wav")
	select {
	case <-f.Done():
	default:
		t.Fatal("future must resolve even when launch fails")
	}
	if f.Err() == nil {
		t.Error("expected launch error on the future")
	}
	if !strings.Contains(out.String(), "mpg123 -q 'star.wav'") {
		t.Errorf("command should still be printed: %q", out.String())
	}
}

func TestLinuxPlayerAwaitExit(t *testing.T) {
	var out bytes.Buffer
	runner := &fakeRunner{release: make(chan struct{}), waitErr: errors.New("exit status 1")}
	opts := testOptions(t, &out)
	opts.Linux = LinuxOptions{Execute: true, AwaitExit: true, Runner: runner}

	f := NewLinuxCreator(opts).CreatePlayer().Play(context.Background(), "star.wav")
	select {
	case <-f.Done():
		t.Fatal("future resolved before the process exited")
	case <-time.After(20 * time.Millisecond):
	}

	close(runner.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.Wait(ctx); err == nil || err.Error() != "exit status 1" {
		t.Errorf("Wait = %v, want exit status 1", err)
	}
}

func TestWindowsPlayerSendsCommand(t *testing.T) {
	var out bytes.Buffer
	sender := &recordingSender{code: 263}
	opts := testOptions(t, &out)
	opts.Windows = WindowsOptions{Sender: sender}

	err := NewWindowsCreator(opts).CreatePlayer().Play(context.Background(), "star.wav").Wait(context.Background())
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if len(sender.commands) != 1 || sender.commands[0] != "Play star.wav" {
		t.Errorf("commands = %q", sender.commands)
	}
	if sender.bufferSize != DefaultBufferSize {
		t.Errorf("buffer size = %d, want %d", sender.bufferSize, DefaultBufferSize)
	}
	if out.String() != "263\n" {
		t.Errorf("output = %q, want result code", out.String())
	}
}

func TestWindowsPlayerEmptyPath(t *testing.T) {
	var out bytes.Buffer
	sender := &recordingSender{}
	opts := testOptions(t, &out)
	opts.Windows = WindowsOptions{Sender: sender, BufferSize: 128}

	f := NewWindowsCreator(opts).CreatePlayer().Play(context.Background(), "")
	if f.Err() != nil {
		t.Errorf("unexpected error: %v", f.Err())
	}
	if sender.commands[0] != "Play " {
		t.Errorf("command = %q", sender.commands[0])
	}
	if sender.bufferSize != 128 {
		t.Errorf("buffer size = %d", sender.bufferSize)
	}
	if out.String() != "0\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestPlayRoundTripTouchesOnlyOneBackend(t *testing.T) {
	var out bytes.Buffer
	sender := &recordingSender{}
	runner := &fakeRunner{}
	opts := Options{
		Output:  &out,
		Logger:  zaptest.NewLogger(t),
		Linux:   LinuxOptions{Execute: true, Runner: runner},
		Windows: WindowsOptions{Sender: sender},
	}

	creator, err := NewCreator(platform.Linux, opts)
	if err != nil {
		t.Fatal(err)
	}
	creator.CreatePlayer().Play(context.Background(), "x.mp3")
	if len(sender.commands) != 0 {
		t.Errorf("linux run reached MCI sender: %q", sender.commands)
	}

	creator, err = NewCreator(platform.Windows, opts)
	if err != nil {
		t.Fatal(err)
	}
	creator.CreatePlayer().Play(context.Background(), "x.mp3")
	if len(runner.commands) != 1 {
		t.Errorf("windows run reached shell runner: %q", runner.commands)
	}
}
