package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat matches every *InvalidFormatError.
	ErrInvalidFormat = errors.New("unexpected output format")

	// ErrNeedsReinstall matches *NeedsReinstallError.
	ErrNeedsReinstall = errors.New("plugins need reinstall")

	// ErrVMNotFound is returned by Status.State for names missing from the
	// VM list.
	ErrVMNotFound = errors.New("virtual machine not found")
)

// Kind names the command whose output failed to parse.
type Kind string

const (
	KindVersion    Kind = "vagrant --version"
	KindBoxList    Kind = "vagrant box list"
	KindPluginList Kind = "vagrant plugin list"
	KindStatus     Kind = "vagrant status"
)

// InvalidFormatError reports output that did not have the expected shape.
type InvalidFormatError struct {
	Kind   Kind
	Reason string // optional
	Line   string // offending line, when a single line was at fault
}

func (e *InvalidFormatError) Error() string {
	msg := fmt.Sprintf("Output from '%s' was in an unexpected format", e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidFormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// NeedsReinstallError is returned when "vagrant plugin list" reports plugins
// that were installed by an older Vagrant release.
type NeedsReinstallError struct {
	Output string
}

func (e *NeedsReinstallError) Error() string {
	return "Vagrant plugins installed before upgrading to version 1.4.x need to be uninstalled and re-installed."
}

func (e *NeedsReinstallError) Is(target error) bool {
	return target == ErrNeedsReinstall
}
