// Package vagrant controls a Vagrant installation through its command line.
//
// An Instance wraps one installation directory and runs vagrant subcommands
// through a Runner. A Connection binds an Instance to a project directory, and
// a VirtualMachine addresses one machine of that project. BoxManager and
// PluginManager manage installation-wide boxes and plugins.
package vagrant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/command"
	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/parser"
)

const noColorFlag = "--no-color"

// DefaultPath returns the default installation directory for the current OS.
func DefaultPath() string {
	return defaultPathFor(runtime.GOOS)
}

func defaultPathFor(goos string) string {
	switch goos {
	case "darwin":
		return "/Applications/Vagrant"
	case "windows":
		return `C:\HashiCorp\Vagrant`
	default:
		return "/opt/vagrant"
	}
}

// ExecOptions tunes a single Execute call.
type ExecOptions struct {
	OnOutput executer.OutputFunc // live output hook (optional)
	Log      bool                // relay output to the external logger
	NoBuffer bool                // do not accumulate stdout/stderr
	dir      string
}

// Instance is a Vagrant installation.
type Instance struct {
	Path        string             // installation directory (defaults to DefaultPath())
	Sudo        bool               // prefix commands with "sudo --"
	Provider    string             // default provider for "vagrant up"
	Color       *bool              // false appends --no-color to subcommands
	Mode        executer.Mode      // callback granularity
	Env         []string           // child environment (nil = inherit)
	Runner      Runner             // command execution strategy (defaults to ExecRunner)
	Logger      logrus.FieldLogger // library logger (defaults to discard)
	External    logrus.FieldLogger // receives relayed stdout (defaults to discard)
	ExternalErr logrus.FieldLogger // receives relayed stderr (defaults to discard)
	Observers   []Observer
	Now         func() time.Time

	mu      sync.Mutex
	version string
}

func (i *Instance) path() string {
	if i.Path == "" {
		return DefaultPath()
	}
	return i.Path
}

func (i *Instance) runner() Runner {
	if i.Runner == nil {
		return ExecRunner{}
	}
	return i.Runner
}

func (i *Instance) log() logrus.FieldLogger {
	return logging.Component(i.Logger, "instance").WithField("path", i.path())
}

func (i *Instance) external() (stdout, stderr logrus.FieldLogger) {
	stdout, stderr = i.External, i.ExternalErr
	if stdout == nil {
		stdout = logging.Discard()
	}
	if stderr == nil {
		stderr = logging.Discard()
	}
	return stdout, stderr
}

func (i *Instance) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// BinaryPath returns the path of the vagrant binary of this installation.
func (i *Instance) BinaryPath() string {
	return filepath.Join(i.path(), "bin", "vagrant")
}

// Validate checks that the installation directory exists and contains an
// executable bin/vagrant.
func (i *Instance) Validate() error {
	log := i.log()
	log.Debug("validating instance")
	err := i.validate()
	if err != nil {
		log.WithError(err).Warn("instance validation failed")
		return err
	}
	log.Info("instance validated")
	return nil
}

func (i *Instance) validate() error {
	path := i.path()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return invalidInstance(ErrInstanceNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return invalidInstance(ErrNonDirectory, path)
	}
	binary := i.BinaryPath()
	info, err = os.Stat(binary)
	if err != nil || info.IsDir() {
		return invalidInstance(ErrMissingBinary, binary)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return invalidInstance(ErrMissingBinary, binary)
	}
	return nil
}

func (i *Instance) builder() command.Builder {
	return command.Builder{Binary: i.BinaryPath(), Sudo: i.Sudo}
}

func (i *Instance) arguments(subcommand string, args []string) []string {
	out := append([]string(nil), args...)
	if i.Color != nil && !*i.Color && subcommand != "--version" {
		out = append(out, noColorFlag)
	}
	return out
}

// Command returns the escaped command line for a subcommand.
func (i *Instance) Command(subcommand string, args ...string) string {
	return i.builder().Line(subcommand, i.arguments(subcommand, args)...)
}

// Execute runs a vagrant subcommand. A command that exits non-zero is not an
// error here; inspect the result or use ExecuteChecked.
func (i *Instance) Execute(ctx context.Context, opts ExecOptions, subcommand string, args ...string) (*executer.Result, error) {
	line := i.Command(subcommand, args...)
	log := i.log().WithField("command", line)
	log.Debug("executing command")

	onOutput := opts.OnOutput
	if opts.Log {
		onOutput = i.relay(onOutput)
	}
	execOpts := executer.Options{
		Mode:     i.Mode,
		NoBuffer: opts.NoBuffer,
		Dir:      opts.dir,
		Env:      i.Env,
		Logger:   i.Logger,
	}
	started := i.now()
	result, err := i.runner().Run(ctx, line, execOpts, onOutput)
	event := CommandEvent{
		Subcommand: subcommand,
		Args:       append([]string(nil), args...),
		Command:    line,
		Dir:        opts.dir,
		Started:    started,
		Duration:   i.now().Sub(started),
		Result:     result,
		Err:        err,
	}
	for _, obs := range i.Observers {
		obs.ObserveCommand(ctx, event)
	}
	if err != nil {
		log.WithError(err).Warn("command could not be run")
		return nil, fmt.Errorf("execute %s: %w", subcommand, err)
	}
	return result, nil
}

// ExecuteChecked runs a vagrant subcommand and returns a *CommandFailedError
// unless it exits with status zero.
func (i *Instance) ExecuteChecked(ctx context.Context, opts ExecOptions, subcommand string, args ...string) (*executer.Result, error) {
	result, err := i.Execute(ctx, opts, subcommand, args...)
	if err != nil {
		return nil, err
	}
	if !result.Succeeded() {
		failed := &CommandFailedError{Command: i.Command(subcommand, args...), Result: result}
		i.log().WithField("command", failed.Command).WithField("stderr", stderrSummary(result)).Warn("command failed")
		return result, failed
	}
	return result, nil
}

func (i *Instance) relay(next executer.OutputFunc) executer.OutputFunc {
	outLog, errLog := i.external()
	return func(stdout, stderr string) {
		if stdout != "" {
			outLog.Info(stdout)
		}
		if stderr != "" {
			errLog.Info(stderr)
		}
		if next != nil {
			next(stdout, stderr)
		}
	}
}

// Version returns the installed Vagrant version. The first successful result
// is cached.
func (i *Instance) Version(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.version != "" {
		return i.version, nil
	}
	i.log().Info("determining vagrant version")
	result, err := i.ExecuteChecked(ctx, ExecOptions{}, "--version")
	if err != nil {
		return "", err
	}
	version, err := parser.NewVersion(result.Stdout, i.Logger).Version()
	if err != nil {
		return "", err
	}
	i.version = version
	return version, nil
}

// Connection returns an unvalidated connection to a project directory.
func (i *Instance) Connection(path string) *Connection {
	return &Connection{Instance: i, Path: path}
}

// Connect returns a validated connection to a project directory.
func (i *Instance) Connect(path string) (*Connection, error) {
	i.log().WithField("project", path).Info("creating connection")
	conn := i.Connection(path)
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Boxes returns the box manager of this installation.
func (i *Instance) Boxes() *BoxManager {
	return &BoxManager{Instance: i}
}

// Plugins returns the plugin manager of this installation.
func (i *Instance) Plugins() *PluginManager {
	return &PluginManager{Instance: i}
}
