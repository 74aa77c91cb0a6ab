// Package storage keeps a SQLite history of play requests.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cboxdk/audioplay/internal/config"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// PlayRecord is one row of play history
type PlayRecord struct {
	ID         int64         `json:"id"`
	SessionID  string        `json:"session_id"`
	PlayedAt   time.Time     `json:"played_at"`
	Platform   string        `json:"platform"`
	PlayerType string        `json:"player_type,omitempty"`
	FilePath   string        `json:"file_path"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// SQLiteStorage stores play history in SQLite
type SQLiteStorage struct {
	config config.HistoryConfig
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteStorage opens (and creates if needed) the history database
func NewSQLiteStorage(cfg config.HistoryConfig, logger *zap.Logger) (*SQLiteStorage, error) {
	if cfg.DatabasePath != ":memory:" {
		dir := filepath.Dir(cfg.DatabasePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", cfg.DatabasePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One run, one writer. A single connection also keeps ":memory:" on one database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("History database opened", zap.String("database_path", cfg.DatabasePath))
	return s, nil
}

// initSchema creates the history table
func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL DEFAULT '',
		played_at DATETIME NOT NULL,
		platform TEXT NOT NULL,
		player_type TEXT NOT NULL DEFAULT '',
		file_path TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ns INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record stores a play and returns its row ID
func (s *SQLiteStorage) Record(ctx context.Context, rec PlayRecord) (int64, error) {
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO plays (session_id, played_at, platform, player_type, file_path, outcome, error, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.PlayedAt.UTC(), rec.Platform, rec.PlayerType, rec.FilePath, rec.Outcome, rec.Error, rec.Duration.Nanoseconds())
	if err != nil {
		return 0, fmt.Errorf("failed to record play: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read play id: %w", err)
	}

	s.logger.Debug("Play recorded",
		zap.Int64("id", id),
		zap.String("session_id", rec.SessionID),
		zap.String("platform", rec.Platform),
		zap.String("outcome", rec.Outcome))

	return id, nil
}

// Recent returns up to limit plays, newest first. A non-positive limit
// falls back to the configured list limit.
func (s *SQLiteStorage) Recent(ctx context.Context, limit int) ([]PlayRecord, error) {
	if limit <= 0 {
		limit = s.config.ListLimit
	}
	if limit > config.MaxHistoryListLimit {
		limit = config.MaxHistoryListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, played_at, platform, player_type, file_path, outcome, error, duration_ns
		 FROM plays ORDER BY played_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var records []PlayRecord
	for rows.Next() {
		var rec PlayRecord
		var durationNs int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.PlayedAt, &rec.Platform, &rec.PlayerType,
			&rec.FilePath, &rec.Outcome, &rec.Error, &durationNs); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		rec.Duration = time.Duration(durationNs)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plays: %w", err)
	}

	return records, nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
