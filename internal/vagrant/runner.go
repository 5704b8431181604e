// ABOUTME: Runner abstraction between the facade and the process executer.
// ABOUTME: Tests substitute a fake runner to script vagrant output without spawning processes.
package vagrant

import (
	"context"
	"time"

	"github.com/agentlab/derelict/internal/executer"
)

// Runner executes one command line.
type Runner interface {
	// Run executes line and returns its result once the command finished.
	Run(ctx context.Context, line string, opts executer.Options, onOutput executer.OutputFunc) (*executer.Result, error)
}

// ExecRunner runs commands with the process executer.
// This is the default runner for Instance.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, line string, opts executer.Options, onOutput executer.OutputFunc) (*executer.Result, error) {
	return executer.Execute(ctx, line, opts, onOutput)
}

// CommandEvent describes one finished vagrant command.
type CommandEvent struct {
	Subcommand string
	Args       []string
	Command    string
	Dir        string
	Started    time.Time
	Duration   time.Duration
	Result     *executer.Result // nil when the command could not be started
	Err        error
}

// Outcomes reported by CommandEvent.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeKilled  = "killed"
	OutcomeError   = "error"
)

// Outcome classifies the finished command.
func (e CommandEvent) Outcome() string {
	switch {
	case e.Err != nil || e.Result == nil:
		return OutcomeError
	case e.Result.Succeeded():
		return OutcomeSuccess
	case e.Result.Signal != "":
		return OutcomeKilled
	default:
		return OutcomeFailure
	}
}

// Observer is notified after every command an Instance runs.
type Observer interface {
	ObserveCommand(ctx context.Context, event CommandEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event CommandEvent)

func (f ObserverFunc) ObserveCommand(ctx context.Context, event CommandEvent) {
	f(ctx, event)
}
