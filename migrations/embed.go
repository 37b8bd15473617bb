// Package migrations embeds the goose SQL migrations for both databases:
// client/ holds the local session store schema, server/ the reference
// backend schema.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// FS contains the migration files of both schemas.
//
//go:embed client/*.sql server/*.sql
var FS embed.FS

// Schema directories inside FS.
const (
	ClientDir = "client"
	ServerDir = "server"
)

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Up applies all pending migrations found in dir to db.
func Up(db *sql.DB, dir string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	// Disable goose's default logging to avoid stdout noise
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Version returns the current schema version of db.
func Version(db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	return goose.GetDBVersion(db)
}
