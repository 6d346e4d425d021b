// Package store persists counters, move history and focus sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"kaizen/internal/stats"
)

// Store manages persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// MoveRecord is one completed relocation.
type MoveRecord struct {
	SourcePath string
	DestPath   string
	Category   string
	Renamed    bool
	MovedAt    time.Time
}

// SessionRecord is one focus session, completed or stopped early.
type SessionRecord struct {
	ID          string
	StartedAt   time.Time
	EndedAt     time.Time
	WorkMinutes int
	Completed   bool
}

// Open initializes or connects to the database in dataDir and applies
// migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kaizen.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadStats returns the persisted counters, or zeroes if none were saved.
func (s *Store) LoadStats(ctx context.Context) (stats.Stats, error) {
	var out stats.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT files_moved, minutes_focused, sessions_completed FROM stats WHERE id = 1`,
	).Scan(&out.FilesMoved, &out.MinutesFocused, &out.SessionsCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Stats{}, nil
	}
	if err != nil {
		return stats.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return out, nil
}

// SaveStats overwrites the persisted counters.
func (s *Store) SaveStats(ctx context.Context, st stats.Stats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (id, files_moved, minutes_focused, sessions_completed, updated_at)
         VALUES (1, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             files_moved = excluded.files_moved,
             minutes_focused = excluded.minutes_focused,
             sessions_completed = excluded.sessions_completed,
             updated_at = excluded.updated_at`,
		st.FilesMoved, st.MinutesFocused, st.SessionsCompleted, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// RecordMove appends a move to the history.
func (s *Store) RecordMove(ctx context.Context, m MoveRecord) error {
	if m.MovedAt.IsZero() {
		m.MovedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO moves (source_path, dest_path, category, renamed, moved_at) VALUES (?, ?, ?, ?, ?)`,
		m.SourcePath, m.DestPath, m.Category, boolToInt(m.Renamed), formatTime(m.MovedAt),
	)
	if err != nil {
		return fmt.Errorf("record move: %w", err)
	}
	return nil
}

// RecentMoves returns up to limit moves, newest first.
func (s *Store) RecentMoves(ctx context.Context, limit int) ([]MoveRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, dest_path, category, renamed, moved_at FROM moves ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	var out []MoveRecord
	for rows.Next() {
		var (
			m       MoveRecord
			renamed int
			movedAt string
		)
		if err := rows.Scan(&m.SourcePath, &m.DestPath, &m.Category, &renamed, &movedAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		m.Renamed = renamed != 0
		m.MovedAt = parseTime(movedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordSession stores a focus session.
func (s *Store) RecordSession(ctx context.Context, r SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions (id, started_at, ended_at, work_minutes, completed) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET ended_at = excluded.ended_at, completed = excluded.completed`,
		r.ID, formatTime(r.StartedAt), formatTime(r.EndedAt), r.WorkMinutes, boolToInt(r.Completed),
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, work_minutes, completed FROM focus_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			r              SessionRecord
			started, ended string
			completed      int
		)
		if err := rows.Scan(&r.ID, &started, &ended, &r.WorkMinutes, &completed); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.EndedAt = parseTime(ended)
		r.Completed = completed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
