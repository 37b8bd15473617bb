package pathos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pathos-os/pathos/migrations"
	_ "modernc.org/sqlite"
)

// queueTimeLayout is fixed-width so queued_at sorts lexically.
const queueTimeLayout = "2006-01-02T15:04:05.000000Z"

// LocalStore persists session state and the progress outbox in SQLite.
type LocalStore struct {
	db *sql.DB
}

// OpenLocalStore opens (creating if needed) the local database at dbPath
// and applies pending migrations.
func OpenLocalStore(dbPath string) (*LocalStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if err := migrations.Up(db, migrations.ClientDir); err != nil {
		db.Close()
		return nil, err
	}

	return &LocalStore{db: db}, nil
}

// Close closes the database connection
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Get reads a session value.
func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a session value.
func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a session value. Missing keys are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// QueueProgress records an update for later confirmation, replacing any
// older update queued for the same week.
func (s *LocalStore) QueueProgress(ctx context.Context, u PendingUpdate) error {
	queuedAt := u.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_progress (week, completed, op_id, attempts, last_error, queued_at)
		VALUES (?, ?, ?, 0, NULL, ?)
		ON CONFLICT(week) DO UPDATE SET
			completed = excluded.completed,
			op_id = excluded.op_id,
			attempts = 0,
			last_error = NULL,
			queued_at = excluded.queued_at
	`, u.Week, u.Completed, u.OpID, queuedAt.UTC().Format(queueTimeLayout))
	if err != nil {
		return fmt.Errorf("queue progress: %w", err)
	}
	return nil
}

// AckProgress removes a confirmed update. A newer update queued for the
// same week has a different op ID and is left in place.
func (s *LocalStore) AckProgress(ctx context.Context, week int, opID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM pending_progress WHERE week = ? AND op_id = ?", week, opID)
	if err != nil {
		return fmt.Errorf("ack progress: %w", err)
	}
	return nil
}

// DropProgress gives up on an update.
func (s *LocalStore) DropProgress(ctx context.Context, week int, opID string) error {
	return s.AckProgress(ctx, week, opID)
}

// FailProgress records a failed delivery attempt.
func (s *LocalStore) FailProgress(ctx context.Context, week int, opID string, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_progress SET attempts = attempts + 1, last_error = ?
		WHERE week = ? AND op_id = ?
	`, reason, week, opID)
	if err != nil {
		return fmt.Errorf("fail progress: %w", err)
	}
	return nil
}

// PendingProgress returns up to limit queued updates, oldest first.
func (s *LocalStore) PendingProgress(ctx context.Context, limit int) ([]PendingUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT week, completed, op_id, attempts, last_error, queued_at
		FROM pending_progress
		ORDER BY queued_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending progress: %w", err)
	}
	defer rows.Close()

	var pending []PendingUpdate
	for rows.Next() {
		var (
			u         PendingUpdate
			lastError sql.NullString
			queuedAt  string
		)
		if err := rows.Scan(&u.Week, &u.Completed, &u.OpID, &u.Attempts, &lastError, &queuedAt); err != nil {
			return nil, fmt.Errorf("scan pending progress: %w", err)
		}
		u.LastError = lastError.String
		if t, err := time.Parse(queueTimeLayout, queuedAt); err == nil {
			u.QueuedAt = t
		}
		pending = append(pending, u)
	}

	return pending, rows.Err()
}

// Stats returns store statistics
func (s *LocalStore) Stats(ctx context.Context) (StoreStats, error) {
	var (
		stats  StoreStats
		oldest sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(queued_at) FROM pending_progress").Scan(&stats.PendingSync, &oldest)
	if err != nil {
		return stats, fmt.Errorf("store stats: %w", err)
	}
	if oldest.Valid {
		if t, err := time.Parse(queueTimeLayout, oldest.String); err == nil {
			stats.OldestPending = &t
		}
	}
	return stats, nil
}

// Ping verifies the database is reachable.
func (s *LocalStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
