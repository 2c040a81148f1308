// Package history records every run and its per-item outcomes in a local
// SQLite database so that past runs can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"bookmarkdl/internal/downloader"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    mode        TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'running',
    total       INTEGER NOT NULL DEFAULT 0,
    successful  INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    timed_out   INTEGER NOT NULL DEFAULT 0,
    output_dir  TEXT NOT NULL DEFAULT '',
    backup_file TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    finished_at INTEGER
);
CREATE TABLE IF NOT EXISTS outcomes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    idx         INTEGER NOT NULL,
    url         TEXT NOT NULL,
    status      TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    elapsed_ms  INTEGER NOT NULL DEFAULT 0,
    uploader    TEXT NOT NULL DEFAULT '',
    title       TEXT NOT NULL DEFAULT '',
    media_file  TEXT NOT NULL DEFAULT '',
    size        INTEGER NOT NULL DEFAULT 0,
    uploaded_at INTEGER NOT NULL DEFAULT 0,
    aspect      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run statuses
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// ErrRunNotFound is returned for an unknown run ID
var ErrRunNotFound = errors.New("run not found")

// Run is one pipeline invocation
type Run struct {
	ID         string
	Mode       string
	Status     string
	Total      int
	Successful int
	Failed     int
	TimedOut   int
	OutputDir  string
	BackupFile string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is zero while the run is unfinished
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Item is one recorded outcome, with sidecar details when available
type Item struct {
	Index     int
	URL       string
	Status    downloader.Status
	Reason    string
	Elapsed   time.Duration
	Uploader  string
	Title     string
	MediaFile string
	Size      int64

	// UploadedAt is zero when the sidecar had no timestamp
	UploadedAt  time.Time
	AspectRatio string
}

// Store is the history database
type Store struct {
	db *sql.DB
}

// DefaultPath returns history.db under the per-user data directory
func DefaultPath() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "bookmarkdl")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "bookmarkdl")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "bookmarkdl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "bookmarkdl")
		}
	}

	return filepath.Join(dataDir, "history.db"), nil
}

// New opens the database at path, creating it and its schema if needed
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRunID returns a time-ordered identifier
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// StartRun inserts a running run and returns it
func (s *Store) StartRun(ctx context.Context, mode string) (*Run, error) {
	run := &Run{
		ID:        NewRunID(),
		Mode:      mode,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Mode, run.Status, run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}
	return run, nil
}

// RecordOutcome appends one item outcome to runID
func (s *Store) RecordOutcome(ctx context.Context, runID string, item Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, idx, url, status, reason, elapsed_ms, uploader, title, media_file, size, uploaded_at, aspect)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, item.Index, item.URL, string(item.Status), item.Reason, item.Elapsed.Milliseconds(),
		item.Uploader, item.Title, item.MediaFile, item.Size, unixOrZero(item.UploadedAt), item.AspectRatio,
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final counts and status of runID
func (s *Store) FinishRun(ctx context.Context, runID, status string, summary downloader.RunSummary) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, total = ?, successful = ?, failed = ?, timed_out = ?,
		 output_dir = ?, backup_file = ?, finished_at = ? WHERE id = ?`,
		status, summary.Total, summary.Successful, summary.Failed, summary.TimedOut,
		summary.OutputDir, summary.BackupFile, time.Now().UnixMilli(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `id, mode, status, total, successful, failed, timed_out, output_dir, backup_file, started_at, finished_at`

// GetRun returns a single run
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Outcomes returns the items recorded for runID in processing order
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, url, status, reason, elapsed_ms, uploader, title, media_file, size, uploaded_at, aspect
		 FROM outcomes WHERE run_id = ? ORDER BY idx ASC, id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var status string
		var elapsedMS, uploaded int64
		if err := rows.Scan(&item.Index, &item.URL, &status, &item.Reason, &elapsedMS,
			&item.Uploader, &item.Title, &item.MediaFile, &item.Size, &uploaded, &item.AspectRatio); err != nil {
			return nil, err
		}
		item.Status = downloader.Status(status)
		item.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if uploaded > 0 {
			item.UploadedAt = time.Unix(uploaded, 0)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var started int64
	var finished sql.NullInt64
	if err := row.Scan(&run.ID, &run.Mode, &run.Status, &run.Total, &run.Successful, &run.Failed,
		&run.TimedOut, &run.OutputDir, &run.BackupFile, &started, &finished); err != nil {
		return nil, err
	}
	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64)
	}
	return &run, nil
}
