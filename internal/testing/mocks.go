package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/agentlab/derelict/internal/executer"
)

// MockResponse is the scripted result of one command line.
type MockResponse struct {
	Stdout string
	Stderr string
	Exit   int
	Signal string
	Err    error
}

// MockCall records one command line passed to MockRunner.
type MockCall struct {
	Line string
	Dir  string
	Mode executer.Mode
}

// MockRunner answers command lines from a table instead of spawning processes.
// It satisfies vagrant.Runner.
type MockRunner struct {
	mu        sync.Mutex
	responses []mockEntry
	calls     []MockCall
}

type mockEntry struct {
	args string
	resp MockResponse
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// On registers resp for command lines ending in args, for example
// On("box list", ...) matches "/opt/vagrant/bin/vagrant box list".
// Earlier registrations win.
func (m *MockRunner) On(args string, resp MockResponse) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockEntry{args: args, resp: resp})
	return m
}

// Calls returns a copy of every recorded call.
func (m *MockRunner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// Lines returns the recorded command lines.
func (m *MockRunner) Lines() []string {
	calls := m.Calls()
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, call.Line)
	}
	return out
}

// Run implements vagrant.Runner.
func (m *MockRunner) Run(ctx context.Context, line string, opts executer.Options, onOutput executer.OutputFunc) (*executer.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Line: line, Dir: opts.Dir, Mode: opts.Mode})
	resp, ok := m.lookup(line)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unexpected command %q", executer.ErrCommandNotFound, line)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	if onOutput != nil {
		if resp.Stdout != "" {
			onOutput(resp.Stdout, "")
		}
		if resp.Stderr != "" {
			onOutput("", resp.Stderr)
		}
	}
	result := &executer.Result{Pid: 4242, Signal: resp.Signal}
	if resp.Signal == "" {
		exit := resp.Exit
		success := exit == 0
		result.ExitStatus = &exit
		result.Success = &success
	}
	if !opts.NoBuffer {
		result.Stdout = resp.Stdout
		result.Stderr = resp.Stderr
	}
	return result, nil
}

func (m *MockRunner) lookup(line string) (MockResponse, bool) {
	for _, entry := range m.responses {
		if line == entry.args || strings.HasSuffix(line, " "+entry.args) {
			return entry.resp, true
		}
	}
	return MockResponse{}, false
}
