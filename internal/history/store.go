// Package history keeps a local log of feedback walks so past sessions can
// be inspected offline. The remote profile itself is never cached here.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS walk_sessions (
    preference_id TEXT PRIMARY KEY,
    ai_id TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS feedback_log (
    id TEXT PRIMARY KEY,
    preference_id TEXT NOT NULL,
    iteration INTEGER NOT NULL,
    feedback TEXT NOT NULL,
    style TEXT,
    image_key TEXT,
    image_url TEXT,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (preference_id) REFERENCES walk_sessions(preference_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_feedback_log_preference_id ON feedback_log(preference_id);
CREATE INDEX IF NOT EXISTS idx_feedback_log_timestamp ON feedback_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_walk_sessions_updated_at ON walk_sessions(updated_at);
`

type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(dbPath)
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".stylepref", "history.db"), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertSession inserts the session or refreshes its updated_at.
func (s *Store) UpsertSession(ctx context.Context, sess *WalkSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO walk_sessions (preference_id, ai_id, created_at, updated_at, completed)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(preference_id) DO UPDATE SET updated_at = excluded.updated_at, completed = excluded.completed`,
		sess.PreferenceID, sess.AIID, sess.CreatedAt, sess.UpdatedAt, sess.Completed)
	return err
}

func (s *Store) GetSession(ctx context.Context, preferenceID string) (*WalkSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT preference_id, ai_id, created_at, updated_at, completed
		 FROM walk_sessions WHERE preference_id = ?`, preferenceID)

	sess := &WalkSession{}
	if err := row.Scan(&sess.PreferenceID, &sess.AIID, &sess.CreatedAt, &sess.UpdatedAt, &sess.Completed); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) MarkCompleted(ctx context.Context, preferenceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE walk_sessions SET completed = 1, updated_at = ? WHERE preference_id = ?`,
		time.Now(), preferenceID)
	return err
}

func (s *Store) ListSessions(ctx context.Context) ([]*WalkSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT preference_id, ai_id, created_at, updated_at, completed
		 FROM walk_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*WalkSession
	for rows.Next() {
		sess := &WalkSession{}
		if err := rows.Scan(&sess.PreferenceID, &sess.AIID, &sess.CreatedAt, &sess.UpdatedAt, &sess.Completed); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, preferenceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM walk_sessions WHERE preference_id = ?`, preferenceID)
	return err
}

// RecordFeedback appends one feedback event, assigning an ID and timestamp
// when the caller left them empty.
func (s *Store) RecordFeedback(ctx context.Context, event *FeedbackEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_log (id, preference_id, iteration, feedback, style, image_key, image_url, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.PreferenceID, event.Iteration, event.Feedback,
		nullString(event.Style), nullString(event.ImageKey), nullString(event.ImageURL), event.Timestamp)
	return err
}

func (s *Store) ListFeedback(ctx context.Context, preferenceID string) ([]*FeedbackEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, preference_id, iteration, feedback, style, image_key, image_url, timestamp
		 FROM feedback_log WHERE preference_id = ? ORDER BY timestamp ASC`, preferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*FeedbackEvent
	for rows.Next() {
		event := &FeedbackEvent{}
		var style, imageKey, imageURL sql.NullString
		if err := rows.Scan(&event.ID, &event.PreferenceID, &event.Iteration, &event.Feedback,
			&style, &imageKey, &imageURL, &event.Timestamp); err != nil {
			return nil, err
		}
		event.Style = style.String
		event.ImageKey = imageKey.String
		event.ImageURL = imageURL.String
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) CountFeedback(ctx context.Context, preferenceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback_log WHERE preference_id = ?`, preferenceID).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
