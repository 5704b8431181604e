// Package models provides the value types produced by parsing Vagrant output.
//
// This package contains the domain values used throughout derelict:
//   - Box: An installed box image for one provider
//   - Plugin: An installed Vagrant plugin and its version
//   - Machine: One line of "vagrant status" (name, state, provider)
//   - VMState: A normalized state symbol such as not_created or running
//
// All values are comparable and immutable once built, so they can be used as
// map keys and compared with ==.
package models

import (
	"regexp"
	"sort"
	"strings"
)

// VMState is the normalized state of a machine as reported by "vagrant status".
//
// States are lower-cased with whitespace runs replaced by underscores, so the
// "not created" column becomes not_created. States reported by providers that
// are not listed below are kept verbatim (after normalization).
type VMState string

const (
	// VMNotCreated indicates the machine has not been created yet.
	VMNotCreated VMState = "not_created"
	// VMRunning indicates the machine is running.
	VMRunning VMState = "running"
	// VMSaved indicates the machine was suspended to disk (VirtualBox).
	VMSaved VMState = "saved"
	// VMPowerOff indicates the machine is halted (VirtualBox).
	VMPowerOff VMState = "poweroff"
	// VMAborted indicates the machine was stopped abruptly.
	VMAborted VMState = "aborted"
	// VMStopped indicates the machine is halted (non-VirtualBox providers).
	VMStopped VMState = "stopped"
	// VMPaused indicates the machine is paused.
	VMPaused VMState = "paused"
	// VMSuspended indicates the machine is suspended (VMware, libvirt).
	VMSuspended VMState = "suspended"
)

// Box represents an installed Vagrant box for a particular provider.
//
// Two boxes are equal when both the name and the provider match; the same box
// name can be installed once per provider.
type Box struct {
	Name     string
	Provider string
}

// Plugin represents an installed Vagrant plugin.
type Plugin struct {
	Name    string
	Version string
}

// Machine is one entry of the VM list printed by "vagrant status".
// Name and State are normalized; Provider is kept as printed.
type Machine struct {
	Name     string
	State    VMState
	Provider string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize converts a printed name or state into its symbolic form by
// replacing whitespace runs with a single underscore and lower-casing it.
func Normalize(value string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(value, "_"))
}

// SortBoxes orders boxes by name, then provider.
func SortBoxes(boxes []Box) {
	sort.Slice(boxes, func(i, j int) bool {
		if boxes[i].Name != boxes[j].Name {
			return boxes[i].Name < boxes[j].Name
		}
		return boxes[i].Provider < boxes[j].Provider
	})
}

// SortPlugins orders plugins by name, then version.
func SortPlugins(plugins []Plugin) {
	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Name != plugins[j].Name {
			return plugins[i].Name < plugins[j].Name
		}
		return plugins[i].Version < plugins[j].Version
	})
}
