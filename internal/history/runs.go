package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// ErrRunNotFound is returned by Get when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded vagrant command.
type Run struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Subcommand  string
	Args        []string
	Command     string
	Dir         string
	Outcome     string
	ExitStatus  *int
	Signal      string
	Error       string
	StdoutBytes int
	StderrBytes int
}

// Record inserts a run row.
func (s *Store) Record(ctx context.Context, run Run) error {
	if s == nil || s.DB == nil {
		return errors.New("history store is nil")
	}
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(run.Subcommand) == "" {
		return errors.New("run subcommand is required")
	}
	if strings.TrimSpace(run.Command) == "" {
		return errors.New("run command is required")
	}
	if run.Outcome == "" {
		return errors.New("run outcome is required")
	}
	if run.StartedAt.IsZero() {
		return errors.New("run start time is required")
	}
	args := run.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal run args: %w", err)
	}
	var exitStatus interface{}
	if run.ExitStatus != nil {
		exitStatus = *run.ExitStatus
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO runs (
		id, started_at, duration_ms, subcommand, args_json, command, dir,
		outcome, exit_status, signal, error, stdout_bytes, stderr_bytes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		run.Duration.Milliseconds(),
		run.Subcommand,
		string(argsJSON),
		run.Command,
		nullIfEmpty(run.Dir),
		run.Outcome,
		exitStatus,
		nullIfEmpty(run.Signal),
		nullIfEmpty(run.Error),
		run.StdoutBytes,
		run.StderrBytes,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	if s == nil || s.DB == nil {
		return Run{}, errors.New("history store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, errors.New("run id is required")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	return s.list(ctx, "", limit)
}

// ListRecentInDir returns up to limit runs executed in dir, newest first.
func (s *Store) ListRecentInDir(ctx context.Context, dir string, limit int) ([]Run, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	return s.list(ctx, dir, limit)
}

func (s *Store) list(ctx context.Context, dir string, limit int) ([]Run, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("history store is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	var (
		rows *sql.Rows
		err  error
	)
	if dir == "" {
		rows, err = s.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM runs
			ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE dir = ?
			ORDER BY started_at DESC, rowid DESC LIMIT ?`, dir, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("history store is nil")
	}
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// Prune deletes every run except the keep most recent ones and returns the
// number of deleted runs. A keep of zero or less deletes nothing.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("history store is nil")
	}
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM runs WHERE rowid NOT IN (
		SELECT rowid FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

const runColumns = `id, started_at, duration_ms, subcommand, args_json, command, dir,
	outcome, exit_status, signal, error, stdout_bytes, stderr_bytes`

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		startedAt  string
		durationMS int64
		argsJSON   string
		dir        sql.NullString
		exitStatus sql.NullInt64
		signal     sql.NullString
		errText    sql.NullString
	)
	if err := scanner.Scan(&run.ID, &startedAt, &durationMS, &run.Subcommand, &argsJSON, &run.Command, &dir,
		&run.Outcome, &exitStatus, &signal, &errText, &run.StdoutBytes, &run.StderrBytes); err != nil {
		return Run{}, err
	}
	parsed, err := parseTime(startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse run started_at: %w", err)
	}
	run.StartedAt = parsed
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
		return Run{}, fmt.Errorf("decode run args: %w", err)
	}
	if dir.Valid {
		run.Dir = dir.String
	}
	if exitStatus.Valid {
		value := int(exitStatus.Int64)
		run.ExitStatus = &value
	}
	if signal.Valid {
		run.Signal = signal.String
	}
	if errText.Valid {
		run.Error = errText.String
	}
	return run, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
