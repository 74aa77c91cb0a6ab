package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cboxdk/audioplay/internal/config"
	"github.com/cboxdk/audioplay/internal/platform"
	"github.com/cboxdk/audioplay/internal/player"
	"github.com/cboxdk/audioplay/internal/prometheus"
	"github.com/cboxdk/audioplay/internal/storage"
	"github.com/cboxdk/audioplay/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Console messages
const (
	UnsupportedMessage = "Only Linux and Windows operating systems are supported."
	PromptMessage      = "Please specify the path to the file to play"
	ExitMessage        = "Press any key to exit..."
)

// newTelemetryService is replaced in tests to observe the tracer provider
var newTelemetryService = telemetry.NewService

// ErrHistoryDisabled is returned by History when no database is configured
var ErrHistoryDisabled = errors.New("play history is disabled")

// Manager wires the player creators to configuration, telemetry, metrics
// and history for a console session
type Manager struct {
	config *config.Config
	logger *zap.Logger

	// Collaborators handed to every creator; Output is set per run
	playerOptions player.Options

	telemetryService *telemetry.Service
	traces           *telemetry.TraceHelper
	exporter         *prometheus.Exporter
	history          *storage.SQLiteStorage // nil when history is disabled
}

// Session summarises one run
type Session struct {
	ID        string            `json:"id"`
	Platform  platform.Platform `json:"platform"`
	Preferred string            `json:"preferred,omitempty"`
	FilePath  string            `json:"file_path"`
	Played    bool              `json:"played"`
	Outcome   string            `json:"outcome"`
	Err       error             `json:"-"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
}

// NewManager creates a new manager instance
func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	return NewManagerWithPlayerOptions(cfg, player.Options{}, logger)
}

// NewManagerWithPlayerOptions creates a manager whose creators use the given
// collaborators. Settings from cfg override the Linux and Windows options;
// runners and senders are kept.
func NewManagerWithPlayerOptions(cfg *config.Config, opts player.Options, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	telemetryConfig := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Exporter: telemetry.ExporterConfig{
			Type:     cfg.Telemetry.Exporter.Type,
			Endpoint: cfg.Telemetry.Exporter.Endpoint,
			Headers:  cfg.Telemetry.Exporter.Headers,
		},
		Sampling: telemetry.SamplingConfig{
			Rate: cfg.Telemetry.Sampling.EffectiveRate(),
		},
	}

	telemetryService, err := newTelemetryService(telemetryConfig, logger.Named("telemetry"))
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry service: %w", err)
	}

	exporter, err := prometheus.NewExporter(cfg.Metrics, logger.Named("prometheus"))
	if err != nil {
		_ = telemetryService.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	var history *storage.SQLiteStorage
	if cfg.History.Enabled {
		history, err = storage.NewSQLiteStorage(cfg.History, logger.Named("storage"))
		if err != nil {
			_ = telemetryService.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to create history storage: %w", err)
		}
	}

	opts.Logger = logger.Named("player")
	opts.Linux.Binary = cfg.Player.Linux.Binary
	opts.Linux.Flags = cfg.Player.Linux.Flags
	opts.Linux.Execute = cfg.Player.Linux.Execute
	opts.Linux.Shell = cfg.Player.Linux.Shell
	opts.Linux.AwaitExit = cfg.Player.Linux.AwaitExit
	opts.Windows.CommandVerb = cfg.Player.Windows.CommandVerb
	opts.Windows.BufferSize = cfg.Player.Windows.BufferSize

	return &Manager{
		config:           cfg,
		logger:           logger,
		playerOptions:    opts,
		telemetryService: telemetryService,
		traces:           telemetryService.Traces(),
		exporter:         exporter,
		history:          history,
	}, nil
}

// Run performs one console session: resolve the platform, select a
// creator, prompt for a path, play it and wait for a final key press.
// An unsupported platform is reported on out and is not an error unless
// platform.strict is set. Cancelling ctx ends a pending read and Run
// returns ctx.Err().
func (m *Manager) Run(ctx context.Context, in io.Reader, out io.Writer) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Preferred: m.config.Platform.Preferred,
		StartedAt: time.Now(),
	}

	ctx, span := m.traces.StartSpan(ctx, telemetry.TraceSession,
		attribute.String(telemetry.AttrSessionID, session.ID))
	defer span.End()

	session.Platform = platform.Resolve(m.config.Platform.Preferred)
	span.SetAttributes(attribute.String(telemetry.AttrPlatform, session.Platform.String()))

	m.logger.Info("Platform resolved",
		zap.String("session_id", session.ID),
		zap.String("platform", session.Platform.String()),
		zap.String("preferred", session.Preferred))

	creator, err := m.selectCreator(ctx, session.Platform, out)
	if err != nil {
		m.traces.RecordError(span, err, "unsupported platform")
		session.Outcome = prometheus.OutcomeSkipped
		session.Duration = time.Since(session.StartedAt)
		return session, err
	}

	lines := newLineReader(in)

	fmt.Fprintln(out, PromptMessage)
	session.FilePath, err = lines.ReadLine(ctx)
	if err != nil {
		session.Duration = time.Since(session.StartedAt)
		m.traces.RecordError(span, err, "read file path")
		if ctx.Err() != nil {
			return session, err
		}
		return session, fmt.Errorf("failed to read file path: %w", err)
	}

	if creator != nil {
		m.play(ctx, creator, session)
	} else {
		session.Outcome = prometheus.OutcomeSkipped
	}

	fmt.Fprintln(out, ExitMessage)
	if m.config.Session.WaitForKey {
		if _, err := lines.ReadLine(ctx); err != nil {
			if ctx.Err() != nil {
				session.Duration = time.Since(session.StartedAt)
				return session, err
			}
			m.logger.Debug("Failed to read exit key", zap.Error(err))
		}
	}

	session.Duration = time.Since(session.StartedAt)
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, session.Outcome))
	m.traces.SetSpanSuccess(span)

	m.logger.Info("Session finished",
		zap.String("session_id", session.ID),
		zap.String("platform", session.Platform.String()),
		zap.Bool("played", session.Played),
		zap.String("outcome", session.Outcome),
		zap.Duration("duration", session.Duration))

	return session, nil
}

// selectCreator returns the creator for p. A nil creator with a nil error
// means the platform is unsupported and playback is skipped.
func (m *Manager) selectCreator(ctx context.Context, p platform.Platform, out io.Writer) (player.Creator, error) {
	opts := m.playerOptions
	opts.Output = out

	var creator player.Creator
	err := m.traces.TraceCreatorSelectFunc(ctx, p.String(), m.config.Platform.Preferred, func(ctx context.Context) error {
		var err error
		creator, err = player.NewCreator(p, opts)
		return err
	})
	if err == nil {
		m.exporter.RecordCreatorSelection(p.String())
		m.logger.Debug("Player creator selected",
			zap.String("platform", p.String()),
			zap.String("creator", fmt.Sprintf("%T", creator)))
		return creator, nil
	}

	m.exporter.RecordUnsupportedPlatform()

	// Report the requested name rather than the host when it was overridden
	var unsupported *player.UnsupportedPlatformError
	if m.config.Platform.Preferred != "" && errors.As(err, &unsupported) {
		unsupported.OS = m.config.Platform.Preferred
	}

	if m.config.Platform.Strict {
		return nil, fmt.Errorf("no player available: %w", err)
	}

	fmt.Fprintln(out, UnsupportedMessage)
	m.logger.Warn("Unsupported platform, playback skipped",
		zap.String("platform", p.String()),
		zap.Error(err))
	return nil, nil
}

// play creates a fresh player and waits for its future. Failures are
// logged and recorded but never returned.
func (m *Manager) play(ctx context.Context, creator player.Creator, session *Session) {
	p := creator.CreatePlayer()
	playerType := fmt.Sprintf("%T", p)
	platformName := creator.Platform().String()

	start := time.Now()
	err := m.traces.TracePlayFunc(ctx, platformName, playerType, session.FilePath, func(ctx context.Context) error {
		return p.Play(ctx, session.FilePath).Wait(ctx)
	})
	duration := time.Since(start)

	session.Played = true
	session.Err = err
	session.Outcome = prometheus.OutcomeOK
	if err != nil {
		session.Outcome = prometheus.OutcomeError
		m.logger.Warn("Playback failed",
			zap.String("platform", platformName),
			zap.String("file", session.FilePath),
			zap.Error(err))
	}

	m.exporter.RecordPlay(platformName, session.Outcome, duration)
	m.recordHistory(ctx, storage.PlayRecord{
		SessionID:  session.ID,
		PlayedAt:   start,
		Platform:   platformName,
		PlayerType: playerType,
		FilePath:   session.FilePath,
		Outcome:    session.Outcome,
		Error:      errorString(err),
		Duration:   duration,
	})
}

func (m *Manager) recordHistory(ctx context.Context, rec storage.PlayRecord) {
	if m.history == nil {
		return
	}
	if _, err := m.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		m.logger.Warn("Failed to record play history", zap.Error(err))
	}
}

// History returns the most recent plays, newest first
func (m *Manager) History(ctx context.Context, limit int) ([]storage.PlayRecord, error) {
	if m.history == nil {
		return nil, ErrHistoryDisabled
	}
	return m.history.Recent(ctx, limit)
}

// Close flushes telemetry, writes the metrics textfile and closes the
// history database
func (m *Manager) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, config.DefaultShutdownTimeout)
	defer cancel()

	var g errgroup.Group

	g.Go(func() error {
		return m.telemetryService.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return m.exporter.WriteTextfile()
	})

	if m.history != nil {
		g.Go(func() error {
			return m.history.Close()
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// lineReader reads console lines without blocking past cancellation. A read
// abandoned on cancellation keeps running in the background and its line is
// dropped; the session ends at that point.
type lineReader struct {
	r *bufio.Reader
}

type lineResult struct {
	line string
	err  error
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(in)}
}

// ReadLine reads one line without its terminator. EOF yields the text read
// so far, which is empty for closed input.
func (l *lineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result := make(chan lineResult, 1)
	go func() {
		line, err := l.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			result <- lineResult{err: err}
			return
		}
		result <- lineResult{line: strings.TrimRight(line, "\r\n")}
	}()

	select {
	case res := <-result:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
