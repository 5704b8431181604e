package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/history"
)

type runJSON struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Command     string    `json:"command"`
	Dir         string    `json:"dir,omitempty"`
	Outcome     string    `json:"outcome"`
	ExitStatus  *int      `json:"exit_status,omitempty"`
	Signal      string    `json:"signal,omitempty"`
	Error       string    `json:"error,omitempty"`
	StdoutBytes int       `json:"stdout_bytes"`
	StderrBytes int       `json:"stderr_bytes"`
}

func toRunJSON(run history.Run) runJSON {
	return runJSON{
		ID:          run.ID,
		StartedAt:   run.StartedAt,
		DurationMS:  run.Duration.Milliseconds(),
		Command:     run.Command,
		Dir:         run.Dir,
		Outcome:     run.Outcome,
		ExitStatus:  run.ExitStatus,
		Signal:      run.Signal,
		Error:       run.Error,
		StdoutBytes: run.StdoutBytes,
		StderrBytes: run.StderrBytes,
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent vagrant commands run against the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.history == nil {
				return errHistoryDisabled
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.HistoryLimit
			}
			var (
				runs []history.Run
				err  error
			)
			if all {
				runs, err = a.history.ListRecent(cmd.Context(), limit)
			} else {
				dir, perr := a.projectPath()
				if perr != nil {
					return perr
				}
				runs, err = a.history.ListRecentInDir(cmd.Context(), dir, limit)
			}
			if err != nil {
				return err
			}
			return a.printRuns(runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of runs to show (default history_limit)")
	cmd.Flags().BoolVar(&all, "all", false, "Include runs from every project")
	cmd.AddCommand(newHistoryShowCommand(a), newHistoryPruneCommand(a))
	return cmd
}

func newHistoryShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.history == nil {
				return errHistoryDisabled
			}
			run, err := a.history.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonOutput {
				return writeJSON(a.stdout, toRunJSON(run))
			}
			fmt.Fprintf(a.stdout, "ID: %s\n", run.ID)
			fmt.Fprintf(a.stdout, "Started At: %s\n", run.StartedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(a.stdout, "Duration: %s\n", run.Duration)
			fmt.Fprintf(a.stdout, "Command: %s\n", run.Command)
			fmt.Fprintf(a.stdout, "Directory: %s\n", orDash(run.Dir))
			fmt.Fprintf(a.stdout, "Outcome: %s\n", a.outcome(run.Outcome))
			fmt.Fprintf(a.stdout, "Exit Status: %s\n", exitString(run.ExitStatus))
			fmt.Fprintf(a.stdout, "Signal: %s\n", orDash(run.Signal))
			fmt.Fprintf(a.stdout, "Error: %s\n", orDash(run.Error))
			fmt.Fprintf(a.stdout, "Output: %d bytes stdout, %d bytes stderr\n", run.StdoutBytes, run.StderrBytes)
			return nil
		},
	}
}

type pruneJSON struct {
	Removed int64 `json:"removed"`
	Kept    int   `json:"kept"`
}

func newHistoryPruneCommand(a *app) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.history == nil {
				return errHistoryDisabled
			}
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.HistoryRetain
			}
			if keep <= 0 {
				return fmt.Errorf("nothing to prune: --keep must be positive (history_retain is %d)", a.cfg.HistoryRetain)
			}
			removed, err := a.history.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			kept, err := a.history.Count(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonOutput {
				return writeJSON(a.stdout, pruneJSON{Removed: removed, Kept: kept})
			}
			fmt.Fprintf(a.stdout, "removed %d runs, %d kept\n", removed, kept)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Number of runs to keep (default history_retain)")
	return cmd
}

func (a *app) printRuns(runs []history.Run) error {
	if a.flags.jsonOutput {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, toRunJSON(run))
		}
		return writeJSON(a.stdout, out)
	}
	w := newTable(a.stdout, "ID", "STARTED", "DURATION", "EXIT", "COMMAND", "OUTCOME")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond),
			exitString(run.ExitStatus),
			strings.TrimSpace(run.Subcommand+" "+strings.Join(run.Args, " ")),
			a.outcome(run.Outcome),
		)
	}
	return w.Flush()
}

func (a *app) outcome(value string) string {
	if value == "success" {
		return a.colors.success(value)
	}
	return a.colors.failure(value)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func exitString(status *int) string {
	if status == nil {
		return "-"
	}
	return strconv.Itoa(*status)
}
