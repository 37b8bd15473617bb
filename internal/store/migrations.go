package store

import (
	"database/sql"

	"github.com/pathos-os/pathos/migrations"
)

// RunMigrations applies all pending server schema migrations using goose.
func RunMigrations(db *sql.DB) error {
	return migrations.Up(db, migrations.ServerDir)
}
