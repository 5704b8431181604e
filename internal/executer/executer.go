// Package executer runs one external command line to completion while
// streaming its output.
//
// An Executer spawns the child with separate stdout and stderr pipes, hands
// every line (or character) to a caller supplied OutputFunc as it arrives,
// buffers both streams, forwards interrupt signals to the child and records
// its exit status.
//
// Signal capture is process-wide. Only one Execute call per process should
// rely on signal forwarding at a time; concurrent calls each forward to their
// own child but race on which one receives a given signal.
package executer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/command"
	"github.com/agentlab/derelict/internal/logging"
)

var (
	// ErrCommandNotFound is returned when the executable of a command line
	// cannot be found or is not executable.
	ErrCommandNotFound = errors.New("command not found")

	// ErrBusy is returned when Execute is called on an Executer that is
	// already running a command.
	ErrBusy = errors.New("executer is already running a command")
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultForwardLimit = 2
)

// Mode controls the granularity of chunks handed to the OutputFunc.
type Mode int

const (
	// ModeLines delivers whole lines, including the trailing newline.
	ModeLines Mode = iota
	// ModeChars delivers one character at a time.
	ModeChars
)

func (m Mode) String() string {
	if m == ModeChars {
		return "chars"
	}
	return "lines"
}

// ParseMode converts "lines" or "chars" into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "lines":
		return ModeLines, nil
	case "chars":
		return ModeChars, nil
	default:
		return ModeLines, fmt.Errorf("unknown output mode %q", value)
	}
}

// OutputFunc receives live output. Exactly one of stdout and stderr is
// non-empty on each call.
type OutputFunc func(stdout, stderr string)

// Options configures an Executer.
type Options struct {
	Mode         Mode               // Callback granularity (defaults to ModeLines)
	NoBuffer     bool               // Skip accumulating Stdout/Stderr
	Dir          string             // Working directory of the child (empty = inherit)
	Env          []string           // Environment of the child (nil = inherit)
	Signals      []os.Signal        // Signals forwarded to the child (defaults to os.Interrupt)
	PollInterval time.Duration      // Bounded wait of the stream loop (defaults to 100ms)
	ForwardLimit int                // Forwards before further signals are suppressed (defaults to 2)
	Logger       logrus.FieldLogger // Defaults to a discarding logger
}

// Result is the outcome of one Execute call.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus *int  // nil while running or when the child was killed
	Success    *bool // nil while running or when the child did not exit cleanly
	Signal     string
	Pid        int
}

// Succeeded reports whether the command exited with status zero.
func (r *Result) Succeeded() bool {
	return r != nil && r.Success != nil && *r.Success
}

// Exited reports whether the command exited on its own (with any status).
func (r *Result) Exited() bool {
	return r != nil && r.ExitStatus != nil
}

// Executer runs commands one at a time. Its buffers are reset at the start of
// every Execute call.
type Executer struct {
	opts    Options
	log     logrus.FieldLogger
	running atomic.Bool

	mu     sync.Mutex
	result Result
}

// New creates an Executer with the given options.
func New(opts Options) *Executer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ForwardLimit <= 0 {
		opts.ForwardLimit = defaultForwardLimit
	}
	if len(opts.Signals) == 0 {
		opts.Signals = []os.Signal{os.Interrupt}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Executer{opts: opts, log: logging.Component(log, "executer")}
}

// Execute is shorthand for New(opts).Execute(ctx, commandLine, onOutput).
func Execute(ctx context.Context, commandLine string, opts Options, onOutput OutputFunc) (*Result, error) {
	return New(opts).Execute(ctx, commandLine, onOutput)
}

// Stdout returns the buffered stdout of the last command.
func (e *Executer) Stdout() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Stdout
}

// Stderr returns the buffered stderr of the last command.
func (e *Executer) Stderr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Stderr
}

// Success returns nil while a command runs or when it did not exit cleanly,
// otherwise whether its exit status was zero.
func (e *Executer) Success() *bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Success
}

// ExitStatus returns the exit status of the last command, if it exited.
func (e *Executer) ExitStatus() *int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.ExitStatus
}

// Result returns a snapshot of the current state.
func (e *Executer) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := e.result
	return &snapshot
}

// Execute runs commandLine and returns once the command exited and both of its
// output streams are drained. Cancelling ctx forwards an interrupt to the
// child; it does not abandon the command.
func (e *Executer) Execute(ctx context.Context, commandLine string, onOutput OutputFunc) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.running.Store(false)
	e.reset()

	cmd, err := e.prepare(commandLine)
	if err != nil {
		return nil, err
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	defer closeAll(stdoutR, stderrR)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	e.log.WithField("command", commandLine).Debug("starting command")
	if err := cmd.Start(); err != nil {
		closeAll(stdoutW, stderrW)
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, cmd.Path, err)
		}
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	closeAll(stdoutW, stderrW)
	pid := cmd.Process.Pid
	e.mu.Lock()
	e.result.Pid = pid
	e.mu.Unlock()

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, e.opts.Signals...)
	defer signal.Stop(sigCh)
	fw := &forwarder{
		limit: e.opts.ForwardLimit,
		send:  func(sig os.Signal) error { return signalProcess(cmd.Process, sig) },
		log:   e.log.WithField("pid", pid),
	}

	exited := make(chan struct{})
	var waitErr error
	go func() {
		defer close(exited)
		waitErr = e.recordExit(cmd.Wait())
	}()

	chunks := make(chan chunk, 64)
	go readStream(stdoutR, streamStdout, e.opts.Mode, chunks)
	go readStream(stderrR, streamStderr, e.opts.Mode, chunks)

	e.pump(ctx, chunks, exited, sigCh, fw, onOutput)

	result := e.Result()
	entry := e.log.WithField("pid", pid)
	switch {
	case result.ExitStatus != nil:
		entry.WithField("exit_status", *result.ExitStatus).Debug("command exited")
	case result.Signal != "":
		entry.WithField("signal", result.Signal).Debug("command terminated by signal")
	}
	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}

func (e *Executer) reset() {
	e.mu.Lock()
	e.result = Result{}
	e.mu.Unlock()
}

func (e *Executer) prepare(commandLine string) (*exec.Cmd, error) {
	words, err := command.Split(commandLine)
	if err != nil {
		return nil, err
	}
	path, err := exec.LookPath(words[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, words[0], err)
	}
	cmd := exec.Command(path, words[1:]...)
	cmd.Dir = e.opts.Dir
	cmd.Env = e.opts.Env
	return cmd, nil
}

// pump multiplexes the stream readers, the exit watcher and forwarded signals
// until both streams reached EOF after the exit status was recorded.
func (e *Executer) pump(ctx context.Context, chunks <-chan chunk, exited <-chan struct{}, sigCh <-chan os.Signal, fw *forwarder, onOutput OutputFunc) {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	active := map[stream]bool{streamStdout: true, streamStderr: true}
	eof := map[stream]bool{}
	hasExited := false
	ctxDone := ctx.Done()

	for len(active) > 0 {
		select {
		case c := <-chunks:
			if c.eof {
				eof[c.stream] = true
			} else {
				e.emit(c, onOutput)
			}
		case <-exited:
			hasExited = true
			exited = nil
		case sig := <-sigCh:
			fw.forward(sig)
		case <-ctxDone:
			ctxDone = nil
			fw.forward(os.Interrupt)
		case <-ticker.C:
		}
		if !hasExited {
			continue
		}
		for s := range eof {
			delete(active, s)
		}
	}
}

func (e *Executer) emit(c chunk, onOutput OutputFunc) {
	if onOutput != nil {
		if c.stream == streamStdout {
			onOutput(c.data, "")
		} else {
			onOutput("", c.data)
		}
	}
	if e.opts.NoBuffer {
		return
	}
	e.mu.Lock()
	if c.stream == streamStdout {
		e.result.Stdout += c.data
	} else {
		e.result.Stderr += c.data
	}
	e.mu.Unlock()
}

// recordExit stores the exit status reported by cmd.Wait. A child killed by a
// signal leaves Success and ExitStatus nil.
func (e *Executer) recordExit(err error) error {
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("wait for command: %w", err)
	}
	var state *os.ProcessState
	if exitErr != nil {
		state = exitErr.ProcessState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if state == nil {
		code := 0
		success := true
		e.result.ExitStatus = &code
		e.result.Success = &success
		return nil
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		e.result.Signal = ws.Signal().String()
		return nil
	}
	code := state.ExitCode()
	if code < 0 {
		return nil
	}
	success := code == 0
	e.result.ExitStatus = &code
	e.result.Success = &success
	return nil
}

type stream int

const (
	streamStdout stream = iota
	streamStderr
)

type chunk struct {
	stream stream
	data   string
	eof    bool
}

// readStream reads units from r until EOF and always finishes with an eof chunk.
func readStream(r io.Reader, s stream, mode Mode, out chan<- chunk) {
	defer func() { out <- chunk{stream: s, eof: true} }()
	br := bufio.NewReader(r)
	for {
		data, err := readUnit(br, mode)
		if data != "" {
			out <- chunk{stream: s, data: data}
		}
		if err != nil {
			return
		}
	}
}

func readUnit(br *bufio.Reader, mode Mode) (string, error) {
	if mode != ModeChars {
		return br.ReadString('\n')
	}
	r, size, err := br.ReadRune()
	if err != nil {
		return "", err
	}
	if r == utf8.RuneError && size == 1 {
		if err := br.UnreadRune(); err != nil {
			return "", err
		}
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		return string([]byte{b}), nil
	}
	return string(r), nil
}

// forwarder relays signals to the child and suppresses them after limit
// forwards.
type forwarder struct {
	limit     int
	forwarded int
	send      func(os.Signal) error
	log       logrus.FieldLogger
}

func (f *forwarder) forward(sig os.Signal) bool {
	if f.forwarded >= f.limit {
		f.log.WithField("signal", sig.String()).Warn("suppressing signal, forward limit reached")
		return false
	}
	f.forwarded++
	f.log.WithField("signal", sig.String()).Info("forwarding signal to command")
	if err := f.send(sig); err != nil {
		f.log.WithError(err).Warn("forward signal failed")
	}
	return true
}

// signalProcess sends sig to a process, returning nil if the process
// has already exited.
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
