// ABOUTME: Recorder adapts the history store to the vagrant command observer hook.
// ABOUTME: Failures to record are logged and never fail the vagrant command itself.
package history

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/vagrant"
)

// Recorder writes every observed command to a Store.
type Recorder struct {
	Store    *Store
	Logger   logrus.FieldLogger
	Redactor *Redactor // scrubs credentials from the command line (optional)
	Retain   int       // runs kept after each record; zero keeps all
	NewID    func() string
}

var _ vagrant.Observer = (*Recorder)(nil)

// ObserveCommand implements vagrant.Observer.
func (r *Recorder) ObserveCommand(ctx context.Context, event vagrant.CommandEvent) {
	if r == nil || r.Store == nil {
		return
	}
	run := RunFromEvent(r.newID(), event)
	if r.Redactor != nil {
		run.Command = r.Redactor.Redact(run.Command)
		run.Args = r.Redactor.RedactAll(run.Args)
		run.Error = r.Redactor.Redact(run.Error)
	}
	// The command may have been cancelled; the record should still land.
	ctx = context.WithoutCancel(ctx)
	log := logging.Component(r.Logger, "history")
	if err := r.Store.Record(ctx, run); err != nil {
		log.WithError(err).WithField("command", run.Command).Warn("failed to record run")
		return
	}
	if r.Retain <= 0 {
		return
	}
	removed, err := r.Store.Prune(ctx, r.Retain)
	if err != nil {
		log.WithError(err).Warn("failed to prune run history")
		return
	}
	if removed > 0 {
		log.WithField("removed", removed).WithField("retain", r.Retain).Debug("pruned run history")
	}
}

func (r *Recorder) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// RunFromEvent converts a finished command into a Run.
func RunFromEvent(id string, event vagrant.CommandEvent) Run {
	run := Run{
		ID:         id,
		StartedAt:  event.Started,
		Duration:   event.Duration,
		Subcommand: event.Subcommand,
		Args:       append([]string(nil), event.Args...),
		Command:    event.Command,
		Dir:        event.Dir,
		Outcome:    event.Outcome(),
	}
	if event.Err != nil {
		run.Error = event.Err.Error()
	}
	if result := event.Result; result != nil {
		if result.ExitStatus != nil {
			status := *result.ExitStatus
			run.ExitStatus = &status
		}
		run.Signal = result.Signal
		run.StdoutBytes = len(result.Stdout)
		run.StderrBytes = len(result.Stderr)
	}
	return run
}
