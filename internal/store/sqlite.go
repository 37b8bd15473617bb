package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// hashCost is the bcrypt cost for new password hashes.
var hashCost = bcrypt.DefaultCost

// SQLiteStore is the SQLite-backed Store.
type SQLiteStore struct {
	db *sql.DB

	// progressMu serializes read-modify-write of roadmap documents.
	progressMu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser registers a new account. Emails are compared case-insensitively.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, password string) (*pathos.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &pathos.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: normalizeEmail(email),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, string(hash), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

// Authenticate checks a password against the stored hash. Unknown emails
// and wrong passwords both return ErrInvalidCredentials.
func (s *SQLiteStore) Authenticate(ctx context.Context, email, password string) (*pathos.User, error) {
	var (
		u    pathos.User
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash FROM users WHERE email = ?",
		normalizeEmail(email),
	).Scan(&u.ID, &u.Name, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetUser returns the user with the given ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*pathos.User, error) {
	var u pathos.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// IssueToken creates a new bearer token for userID.
func (s *SQLiteStore) IssueToken(ctx context.Context, userID string) (string, error) {
	token := ulid.Make().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tokens (token, user_id, created_at) VALUES (?, ?, ?)",
		token, userID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

// UserByToken resolves a bearer token to its user.
func (s *SQLiteStore) UserByToken(ctx context.Context, token string) (*pathos.User, error) {
	var u pathos.User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ?
	`, token).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	return &u, nil
}

// SaveRoadmap replaces the user's roadmap.
func (s *SQLiteStore) SaveRoadmap(ctx context.Context, userID string, rm *pathos.Roadmap) error {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	return saveRoadmap(ctx, s.db, userID, rm)
}

// GetRoadmap returns the user's roadmap, or ErrNotFound.
func (s *SQLiteStore) GetRoadmap(ctx context.Context, userID string) (*pathos.Roadmap, error) {
	return getRoadmap(ctx, s.db, userID)
}

// SetProgress sets the completion state of one week and returns the
// updated roadmap. Setting the same state twice is a no-op.
func (s *SQLiteStore) SetProgress(ctx context.Context, userID string, update pathos.ProgressUpdate) (*pathos.Roadmap, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rm, err := getRoadmap(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	i := rm.IndexOf(update.Week)
	if i < 0 {
		return nil, fmt.Errorf("week %d: %w", update.Week, ErrUnknownWeek)
	}
	rm.Steps[i].Completed = update.Completed

	if err := saveRoadmap(ctx, tx, userID, rm); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return rm, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func saveRoadmap(ctx context.Context, q querier, userID string, rm *pathos.Roadmap) error {
	doc, err := rm.Encode()
	if err != nil {
		return fmt.Errorf("encode roadmap: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO roadmaps (user_id, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, userID, string(doc), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	return nil
}

func getRoadmap(ctx context.Context, q querier, userID string) (*pathos.Roadmap, error) {
	var doc string
	err := q.QueryRowContext(ctx,
		"SELECT document FROM roadmaps WHERE user_id = ?", userID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query roadmap: %w", err)
	}
	return pathos.DecodeRoadmap([]byte(doc))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
