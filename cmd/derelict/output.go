package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/agentlab/derelict/internal/models"
	"github.com/agentlab/derelict/internal/vagrant"
)

// exitError carries a process exit code. Silent errors were already reported
// by the command itself.
type exitError struct {
	code   int
	silent bool
	err    error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

func (a *app) reportError(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		if !exit.silent {
			fmt.Fprintf(a.stderr, "%s %v\n", a.colors.failure("Error:"), err)
		}
		return exit.code
	}
	fmt.Fprintf(a.stderr, "%s %v\n", a.colors.failure("Error:"), err)
	var failed *vagrant.CommandFailedError
	if errors.As(err, &failed) && failed.Result != nil && failed.Result.ExitStatus != nil && *failed.Result.ExitStatus > 0 {
		return *failed.Result.ExitStatus
	}
	return 1
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type palette struct {
	enabled bool
}

func (p palette) paint(s string, attrs ...color.Attribute) string {
	if !p.enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (p palette) failure(s string) string { return p.paint(s, color.Bold, color.FgRed) }
func (p palette) success(s string) string { return p.paint(s, color.FgGreen) }
func (p palette) header(s string) string  { return p.paint(s, color.Bold) }

func (p palette) state(state models.VMState) string {
	s := string(state)
	switch state {
	case models.VMRunning:
		return p.paint(s, color.FgGreen)
	case models.VMSaved, models.VMSuspended, models.VMPaused:
		return p.paint(s, color.FgYellow)
	case models.VMPowerOff, models.VMStopped, models.VMAborted:
		return p.paint(s, color.FgRed)
	case models.VMNotCreated:
		return p.paint(s, color.Faint)
	default:
		return s
	}
}

func writeJSON(w io.Writer, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 2, 8, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
