// ABOUTME: Error values returned by the Vagrant facade.
// ABOUTME: Validation, lookup and command failures each have a sentinel for errors.Is checks.
package vagrant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/parser"
)

var (
	// ErrInvalidInstance is the parent of every instance validation error.
	ErrInvalidInstance = errors.New("invalid vagrant instance")
	// ErrInstanceNotFound is returned when the installation directory is missing.
	ErrInstanceNotFound = errors.New("directory doesn't exist")
	// ErrNonDirectory is returned when the installation path is a file.
	ErrNonDirectory = errors.New("expected directory, found file")
	// ErrMissingBinary is returned when bin/vagrant is missing or not executable.
	ErrMissingBinary = errors.New("'vagrant' binary not found")

	// ErrInvalidConnection is the parent of every connection validation error.
	ErrInvalidConnection = errors.New("invalid vagrant connection")
	// ErrConnectionNotFound is returned when the project path does not exist.
	ErrConnectionNotFound = errors.New("Vagrantfile not found for path")

	// ErrInvalidVM is the parent of every virtual machine validation error.
	ErrInvalidVM = errors.New("invalid virtual machine")
	// ErrVMNotFound is returned when a connection does not list a machine.
	ErrVMNotFound = parser.ErrVMNotFound

	ErrBoxNotFound    = errors.New("box not found")
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrCommandFailed matches every *CommandFailedError.
	ErrCommandFailed = errors.New("vagrant command failed")
)

// CommandFailedError is returned by ExecuteChecked when a command did not exit
// with status zero.
type CommandFailedError struct {
	Command string
	Result  *executer.Result
}

func (e *CommandFailedError) Error() string {
	stderr := ""
	if e.Result != nil {
		stderr = e.Result.Stderr
	}
	return fmt.Sprintf("Error executing Vagrant command '%s', STDERR output:\n%s", e.Command, stderr)
}

func (e *CommandFailedError) Is(target error) bool {
	return target == ErrCommandFailed
}

// VMNotFoundError reports a machine name missing from a project.
type VMNotFoundError struct {
	Name string
	Path string
}

func (e *VMNotFoundError) Error() string {
	return fmt.Sprintf("Virtual machine %s not found in %s", e.Name, e.Path)
}

func (e *VMNotFoundError) Is(target error) bool {
	return target == ErrVMNotFound || target == ErrInvalidVM
}

// BoxNotFoundError reports a box that is not installed for a provider.
type BoxNotFoundError struct {
	Name     string
	Provider string
}

func (e *BoxNotFoundError) Error() string {
	return fmt.Sprintf("Box '%s' for provider '%s' missing", e.Name, e.Provider)
}

func (e *BoxNotFoundError) Is(target error) bool {
	return target == ErrBoxNotFound
}

// PluginNotFoundError reports a plugin that is not installed.
type PluginNotFoundError struct {
	Name string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("Plugin '%s' is not currently installed", e.Name)
}

func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}

func invalidInstance(kind error, path string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidInstance, kind, path)
}

func invalidConnection(kind error, path string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidConnection, kind, path)
}

// stderrSummary trims command stderr for log fields.
func stderrSummary(result *executer.Result) string {
	if result == nil {
		return ""
	}
	return strings.TrimSpace(result.Stderr)
}
