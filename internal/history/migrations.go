// ABOUTME: Schema migrations for the run history database.
// ABOUTME: The applied version lives in SQLite's user_version header field.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaTooNew is returned when the database was migrated by a newer
// derelict than this one.
var ErrSchemaTooNew = errors.New("history schema is newer than this build")

type migration struct {
	version    int
	name       string
	statements []string
}

// migrations are numbered 1..n without gaps; user_version n means all of
// them were applied.
var migrations = []migration{
	{
		version: 1,
		name:    "init_runs",
		statements: []string{
			`CREATE TABLE runs (
				id TEXT PRIMARY KEY,
				started_at TEXT NOT NULL,
				duration_ms INTEGER NOT NULL,
				subcommand TEXT NOT NULL,
				args_json TEXT NOT NULL,
				command TEXT NOT NULL,
				dir TEXT,
				outcome TEXT NOT NULL,
				exit_status INTEGER,
				signal TEXT,
				error TEXT,
				stdout_bytes INTEGER NOT NULL DEFAULT 0,
				stderr_bytes INTEGER NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		version: 2,
		name:    "runs_listing_indexes",
		statements: []string{
			`CREATE INDEX idx_runs_started_at ON runs(started_at)`,
			`CREATE INDEX idx_runs_dir_started_at ON runs(dir, started_at)`,
		},
	},
}

// SchemaVersion returns the version the current build migrates to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies every migration above the database's user_version. Each
// migration and its version bump commit in one transaction.
func Migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if err := validateMigrations(); err != nil {
		return err
	}
	current, err := userVersion(db)
	if err != nil {
		return err
	}
	if latest := SchemaVersion(); current > latest {
		return fmt.Errorf("%w: database is at version %d, this build knows %d", ErrSchemaTooNew, current, latest)
	}
	for _, m := range migrations[current:] {
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d (%s): %w", m.version, m.name, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("set schema version %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d (%s): %w", m.version, m.name, err)
	}
	return nil
}

func validateMigrations() error {
	if len(migrations) == 0 {
		return errors.New("no migrations defined")
	}
	for i, m := range migrations {
		if m.version != i+1 {
			return fmt.Errorf("migration %q has version %d, want %d", m.name, m.version, i+1)
		}
		if strings.TrimSpace(m.name) == "" {
			return fmt.Errorf("migration %d missing name", m.version)
		}
		if len(m.statements) == 0 {
			return fmt.Errorf("migration %d has no statements", m.version)
		}
	}
	return nil
}
