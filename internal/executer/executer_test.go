//go:build !windows

package executer

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab/derelict/internal/logging"
)

type outputRecorder struct {
	mu     sync.Mutex
	stdout []string
	stderr []string
	bad    int
}

func (r *outputRecorder) record(stdout, stderr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case stdout != "" && stderr == "":
		r.stdout = append(r.stdout, stdout)
	case stderr != "" && stdout == "":
		r.stderr = append(r.stderr, stderr)
	default:
		r.bad++
	}
}

func TestExecuteSuccess(t *testing.T) {
	rec := &outputRecorder{}
	result, err := Execute(context.Background(), `sh -c 'echo out; echo err 1>&2; echo more'`, Options{}, rec.record)
	require.NoError(t, err)

	assert.Equal(t, "out\nmore\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	require.NotNil(t, result.Success)
	assert.True(t, *result.Success)
	require.NotNil(t, result.ExitStatus)
	assert.Equal(t, 0, *result.ExitStatus)
	assert.True(t, result.Succeeded())
	assert.True(t, result.Exited())
	assert.Empty(t, result.Signal)
	assert.NotZero(t, result.Pid)

	assert.Equal(t, []string{"out\n", "more\n"}, rec.stdout)
	assert.Equal(t, []string{"err\n"}, rec.stderr)
	assert.Zero(t, rec.bad)
}

func TestExecuteNonZeroExit(t *testing.T) {
	e := New(Options{})
	result, err := e.Execute(context.Background(), `sh -c 'echo partial; echo oops 1>&2; exit 3'`, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Success)
	assert.False(t, *result.Success)
	require.NotNil(t, result.ExitStatus)
	assert.Equal(t, 3, *result.ExitStatus)
	assert.False(t, result.Succeeded())
	assert.Equal(t, "partial\n", e.Stdout())
	assert.Equal(t, "oops\n", e.Stderr())
	assert.Equal(t, 3, *e.ExitStatus())
	assert.False(t, *e.Success())
}

func TestExecuteKilledChild(t *testing.T) {
	result, err := Execute(context.Background(), `sh -c 'echo before; kill -9 $$'`, Options{}, nil)
	require.NoError(t, err)

	assert.Nil(t, result.Success)
	assert.Nil(t, result.ExitStatus)
	assert.False(t, result.Exited())
	assert.Equal(t, "killed", result.Signal)
	assert.Equal(t, "before\n", result.Stdout)
}

func TestExecuteNoBuffer(t *testing.T) {
	rec := &outputRecorder{}
	result, err := Execute(context.Background(), `sh -c 'echo one; echo two 1>&2'`, Options{NoBuffer: true}, rec.record)
	require.NoError(t, err)

	assert.Empty(t, result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Equal(t, []string{"one\n"}, rec.stdout)
	assert.Equal(t, []string{"two\n"}, rec.stderr)
	assert.True(t, result.Succeeded())
}

func TestExecuteCharsMode(t *testing.T) {
	rec := &outputRecorder{}
	result, err := Execute(context.Background(), `printf 'h\303\251!'`, Options{Mode: ModeChars}, rec.record)
	require.NoError(t, err)

	assert.Equal(t, []string{"h", "é", "!"}, rec.stdout)
	assert.Equal(t, "hé!", result.Stdout)
}

func TestExecuteCharsModeInvalidUTF8(t *testing.T) {
	rec := &outputRecorder{}
	result, err := Execute(context.Background(), `printf 'a\377b'`, Options{Mode: ModeChars}, rec.record)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "\xff", "b"}, rec.stdout)
	assert.Equal(t, "a\xffb", result.Stdout)
}

func TestExecuteOutputWithoutTrailingNewline(t *testing.T) {
	rec := &outputRecorder{}
	result, err := Execute(context.Background(), `printf 'first\nlast'`, Options{}, rec.record)
	require.NoError(t, err)

	assert.Equal(t, []string{"first\n", "last"}, rec.stdout)
	assert.Equal(t, "first\nlast", result.Stdout)
}

func TestExecuteCommandNotFound(t *testing.T) {
	_, err := Execute(context.Background(), "derelict-no-such-binary --version", Options{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandNotFound))

	_, err = Execute(context.Background(), filepath.Join(t.TempDir(), "missing")+" status", Options{}, nil)
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestExecuteNonExecutableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vagrant")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644))

	_, err := Execute(context.Background(), path+" status", Options{}, nil)
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestExecuteRejectsShellOperators(t *testing.T) {
	_, err := Execute(context.Background(), "echo a | wc -l", Options{}, nil)
	assert.Error(t, err)
}

func TestExecuteBusy(t *testing.T) {
	e := New(Options{})
	e.running.Store(true)
	_, err := e.Execute(context.Background(), "true", nil)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestExecuteResetsBetweenCalls(t *testing.T) {
	e := New(Options{})
	_, err := e.Execute(context.Background(), `sh -c 'echo first; exit 1'`, nil)
	require.NoError(t, err)
	result, err := e.Execute(context.Background(), "echo second", nil)
	require.NoError(t, err)

	assert.Equal(t, "second\n", result.Stdout)
	assert.True(t, result.Succeeded())
}

func TestExecuteDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	env := append(os.Environ(), "DERELICT_TEST_VALUE=hello")
	result, err := Execute(context.Background(), `sh -c 'pwd; echo $DERELICT_TEST_VALUE'`, Options{Dir: dir, Env: env}, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(result.Stdout), "\n")
	require.Len(t, lines, 2)
	got, err := filepath.EvalSymlinks(lines[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "hello", lines[1])
}

func TestExecuteForwardsSignals(t *testing.T) {
	e := New(Options{Signals: []os.Signal{syscall.SIGUSR1}, Logger: logging.Discard()})

	var once sync.Once
	onOutput := func(stdout, _ string) {
		if stdout == "ready\n" {
			once.Do(func() {
				_ = syscall.Kill(os.Getpid(), syscall.SIGUSR1)
			})
		}
	}
	line := `sh -c 'trap "echo got; exit 7" USR1; echo ready; while :; do sleep 0.05; done'`
	result, err := e.Execute(context.Background(), line, onOutput)
	require.NoError(t, err)

	assert.Equal(t, "ready\ngot\n", result.Stdout)
	require.NotNil(t, result.ExitStatus)
	assert.Equal(t, 7, *result.ExitStatus)
	assert.Positive(t, result.Pid)
	assert.Equal(t, result.Pid, e.Result().Pid)
}

func TestExecuteContextCancelInterruptsChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onOutput := func(stdout, _ string) {
		if stdout == "ready\n" {
			cancel()
		}
	}
	line := `sh -c 'trap "exit 9" INT; echo ready; while :; do sleep 0.05; done'`
	result, err := Execute(ctx, line, Options{}, onOutput)
	require.NoError(t, err)

	require.NotNil(t, result.ExitStatus)
	assert.Equal(t, 9, *result.ExitStatus)
	require.NotNil(t, result.Success)
	assert.False(t, *result.Success)
}

func TestExecuteWaitsForBothStreams(t *testing.T) {
	// The child exits before its background writer finishes; output written
	// to the inherited pipe must still be collected.
	line := `sh -c '(sleep 0.2; echo late) & echo early'`
	result, err := Execute(context.Background(), line, Options{PollInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.Equal(t, "early\nlate\n", result.Stdout)
	assert.True(t, result.Succeeded())
}

func TestForwarderSuppressesAfterLimit(t *testing.T) {
	var sent []os.Signal
	fw := &forwarder{
		limit: 2,
		send: func(sig os.Signal) error {
			sent = append(sent, sig)
			return nil
		},
		log: logging.Discard(),
	}

	assert.True(t, fw.forward(os.Interrupt))
	assert.True(t, fw.forward(os.Interrupt))
	assert.False(t, fw.forward(os.Interrupt))
	assert.Len(t, sent, 2)
}

func TestSignalProcessIgnoresFinishedProcess(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	assert.NoError(t, signalProcess(cmd.Process, os.Interrupt))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("chars")
	require.NoError(t, err)
	assert.Equal(t, ModeChars, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLines, mode)
	assert.Equal(t, "lines", mode.String())

	_, err = ParseMode("words")
	assert.Error(t, err)
}
