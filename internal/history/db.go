// Package history persists a log of vagrant commands in SQLite.
//
// Every command an Instance runs can be recorded as a Run: when it started,
// how long it took, the command line, and how it ended. The CLI uses the
// store to answer "what did I run against this project, and did it work".
//
// The database is a single SQLite file in WAL mode behind one connection.
// Pragmas travel in the DSN so the driver applies them to every connection
// it opens.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const historyDirPerms = 0o750

// connPragmas are passed to the modernc driver as _pragma DSN parameters.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Store holds the SQLite handle for the run history.
type Store struct {
	Path string
	DB   *sql.DB
}

// Open opens the history database at path, creating the file and its parent
// directory when missing, and migrates the schema to the current version.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history db path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history db %s is a directory", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), historyDirPerms); err != nil {
		return nil, fmt.Errorf("create history dir for %s: %w", path, err)
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}
	// Runs are written from the observer of one CLI process; a single
	// connection keeps writes serialized.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}
	if err := Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate history db %s: %w", path, err)
	}
	return &Store{Path: path, DB: conn}, nil
}

// Close releases the underlying database connection.
// It is safe to call Close on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// dsn appends the connection pragmas to path. The driver strips the query
// from names without a file: prefix, so path is used verbatim as a file name.
func dsn(path string) string {
	params := url.Values{}
	for _, pragma := range connPragmas {
		params.Add("_pragma", pragma)
	}
	return path + "?" + params.Encode()
}
