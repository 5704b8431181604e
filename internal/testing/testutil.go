// ABOUTME: Package testing provides shared test helpers for derelict.
//
// It contains canned Vagrant output, fake Vagrant installations backed by a
// shell script, and small filesystem helpers built on testify.
package testing

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alessio/shellescape"
	"github.com/stretchr/testify/require"
)

// FixedTime is a fixed timestamp for deterministic tests.
var FixedTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Canned output of the supported vagrant commands.
const (
	VersionOutput = "Vagrant v1.3.5\n"

	BoxListOutput = "precise64 (virtualbox)\n" +
		"trusty64  (vmware_fusion)\n"

	PluginListOutput = "vagrant-aws (0.4.0)\n" +
		"vagrant-login (1.0.1)\n"

	StatusOutput = "Current machine states:\n" +
		"\n" +
		"web                       running (virtualbox)\n" +
		"db                        not created (virtualbox)\n" +
		"\n" +
		"This environment represents multiple VMs. The VMs are all listed\n" +
		"above with their current state.\n"
)

// TempFile creates a temporary file with the given content and returns its path.
func TempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "testfile")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file")
	return path
}

// MkdirTempInDir creates a temporary directory under parentDir that is
// removed when the test completes.
func MkdirTempInDir(t *testing.T, parentDir string) string {
	t.Helper()
	path, err := os.MkdirTemp(parentDir, "testdir*")
	require.NoError(t, err, "failed to create temp dir")
	t.Cleanup(func() {
		_ = os.RemoveAll(path)
	})
	return path
}

// FakeResponse is what the fake vagrant binary prints for one argument list.
type FakeResponse struct {
	Stdout string
	Stderr string
	Exit   int
}

// FakeInstallation is a Vagrant installation directory whose bin/vagrant is a
// shell script answering a fixed set of argument lists.
type FakeInstallation struct {
	Path     string
	callsLog string
}

// NewFakeInstallation writes an executable bin/vagrant under a temporary
// directory. Keys of responses are the space-joined arguments, for example
// "box list" or "status --no-color". Unknown arguments exit with status 64.
func NewFakeInstallation(t *testing.T, responses map[string]FakeResponse) *FakeInstallation {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake vagrant installations need a POSIX shell")
	}
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))

	fake := &FakeInstallation{Path: root, callsLog: filepath.Join(root, "calls.log")}
	script := fakeScript(fake.callsLog, responses)
	require.NoError(t, os.WriteFile(filepath.Join(bin, "vagrant"), []byte(script), 0o755))
	return fake
}

func fakeScript(callsLog string, responses map[string]FakeResponse) string {
	keys := make([]string, 0, len(responses))
	for key := range responses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("printf '%s\\n' \"$*\" >> " + shellescape.Quote(callsLog) + "\n")
	b.WriteString("case \"$*\" in\n")
	for _, key := range keys {
		resp := responses[key]
		b.WriteString(shellescape.Quote(key) + ")\n")
		if resp.Stdout != "" {
			b.WriteString("  printf '%s' " + shellescape.Quote(resp.Stdout) + "\n")
		}
		if resp.Stderr != "" {
			b.WriteString("  printf '%s' " + shellescape.Quote(resp.Stderr) + " >&2\n")
		}
		b.WriteString("  exit " + strconv.Itoa(resp.Exit) + "\n")
		b.WriteString("  ;;\n")
	}
	b.WriteString("*)\n")
	b.WriteString("  echo \"unexpected vagrant call: $*\" >&2\n")
	b.WriteString("  exit 64\n")
	b.WriteString("  ;;\n")
	b.WriteString("esac\n")
	return b.String()
}

// Calls returns the argument lists the fake binary was invoked with, in order.
func (f *FakeInstallation) Calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.callsLog)
	if os.IsNotExist(err) {
		return []string{}
	}
	require.NoError(t, err, "failed to read calls log")
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return lines
}
