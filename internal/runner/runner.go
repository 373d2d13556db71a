// Package runner launches external processes with merged output, optional
// live streaming to a build log and a hard wall-clock bound.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/commentstrip/internal/failure"
)

const (
	// DefaultGrace is how long Run waits for a killed process to be reaped.
	DefaultGrace = 500 * time.Millisecond

	maxLineBytes = 1024 * 1024
)

// Command is an executable and its arguments. It is never passed through a shell.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
}

// Argv returns the full argument vector, executable first.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command space-joined for log lines.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Options controls a single run.
type Options struct {
	// Verbose forwards each output line to Sink as soon as it is read.
	Verbose bool
	// Timeout bounds the run. It must be positive.
	Timeout time.Duration
	// Sink receives output lines when Verbose is set.
	Sink io.Writer
}

// Outcome is the result of one process execution.
type Outcome struct {
	// ExitCode is nil when the process did not exit on its own.
	ExitCode *int
	TimedOut bool
	// Terminated reports whether a timed out or cancelled process was confirmed dead.
	Terminated bool
	// Lines holds the merged stdout/stderr, captured regardless of Verbose.
	Lines []string
	// Orphans lists descendant pids still alive after termination.
	Orphans  []int
	Duration time.Duration
}

// Success reports a normal exit with status zero.
func (o *Outcome) Success() bool {
	return o != nil && !o.TimedOut && o.ExitCode != nil && *o.ExitCode == 0
}

// LaunchError reports an executable that could not be found or started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Path, e.Err)
}

// Unwrap exposes both the launch kind and the underlying cause.
func (e *LaunchError) Unwrap() []error {
	return []error{failure.ErrLaunch, e.Err}
}

// Runner defines an interface for running external processes.
// This abstraction allows for dependency injection and easier testing.
type Runner interface {
	Run(ctx context.Context, cmd Command, opts Options) (*Outcome, error)
}

// ExecRunner implements Runner using actual os/exec commands.
type ExecRunner struct {
	logger hclog.Logger
	grace  time.Duration
}

// NewExecRunner creates a runner. A nil logger discards diagnostics.
func NewExecRunner(logger hclog.Logger) *ExecRunner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ExecRunner{logger: logger, grace: DefaultGrace}
}

// WithGrace overrides the post-kill reap window.
func (r *ExecRunner) WithGrace(d time.Duration) *ExecRunner {
	r.grace = d
	return r
}

// Run executes the command and blocks until it exits, the timeout elapses or
// ctx is cancelled, whichever comes first. A timeout is reported through
// Outcome.TimedOut, not as an error; cancellation returns the partial outcome
// together with the context error.
func (r *ExecRunner) Run(ctx context.Context, command Command, opts Options) (*Outcome, error) {
	if command.Path == "" {
		return nil, &LaunchError{Path: command.Path, Err: errors.New("empty executable")}
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", opts.Timeout)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, failure.IO("create output pipe", err)
	}

	cmd := exec.Command(command.Path, command.Args...) // #nosec G204 - argv built by the pipeline, no shell involved
	cmd.Dir = command.Dir
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	r.logger.Debug("starting process", "command", command.String(), "timeout", opts.Timeout)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, &LaunchError{Path: command.Path, Err: err}
	}
	// The child has its own copy; ours must go so the reader sees EOF on exit.
	pw.Close()

	capture := &capture{verbose: opts.Verbose, sink: opts.Sink}
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		capture.consume(pr)
	}()

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	outcome := &Outcome{}
	var runErr error

	select {
	case err := <-waitDone:
		outcome.ExitCode = exitCode(cmd, err)
		// A grandchild can keep the pipe open after the child exits; stop reading at the deadline.
		select {
		case <-readDone:
		case <-timer.C:
			r.logger.Warn("output still open after exit, killing leftover processes", "command", command.Path, "pid", cmd.Process.Pid)
			r.killLeftovers(cmd.Process.Pid)
		}
	case <-timer.C:
		outcome.TimedOut = true
		r.logger.Warn("process timed out", "command", command.Path, "pid", cmd.Process.Pid, "timeout", opts.Timeout)
		r.terminate(cmd, waitDone, outcome)
	case <-ctx.Done():
		runErr = fmt.Errorf("%s: %w", command.Path, ctx.Err())
		r.logger.Warn("process cancelled", "command", command.Path, "pid", cmd.Process.Pid)
		r.terminate(cmd, waitDone, outcome)
	}

	// Closing the read end unblocks the reader if something still holds the pipe.
	pr.Close()
	<-readDone

	outcome.Lines = capture.snapshot()
	outcome.Duration = time.Since(start)

	if outcome.ExitCode != nil {
		r.logger.Debug("process exited", "command", command.Path, "exit_code", *outcome.ExitCode, "duration", outcome.Duration)
	}
	return outcome, runErr
}

// terminate kills the process, its group and every descendant it had spawned,
// then waits up to the grace period for the kill to be confirmed.
func (r *ExecRunner) terminate(cmd *exec.Cmd, waitDone <-chan error, outcome *Outcome) {
	pid := cmd.Process.Pid

	// Snapshot before killing: once the root dies its children are reparented.
	descendants := descendantsOf(pid)

	if err := killProcessGroup(pid); err != nil {
		r.logger.Debug("process group kill failed", "pid", pid, "error", err)
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Debug("process kill failed", "pid", pid, "error", err)
	}
	killAll(descendants)

	deadline := time.Now().Add(r.grace)
	select {
	case <-waitDone:
		outcome.Terminated = true
	case <-time.After(r.grace):
		r.logger.Error("process did not exit after kill", "pid", pid, "grace", r.grace)
	}

	outcome.Orphans = survivors(descendants, time.Until(deadline))
	if len(outcome.Orphans) > 0 {
		r.logger.Error("descendant processes survived termination", "pid", pid, "orphans", outcome.Orphans)
	}
}

// killLeftovers kills what an exited process left running in its group or
// below it, such as a background job still holding the output pipe.
func (r *ExecRunner) killLeftovers(pid int) {
	if err := killProcessGroup(pid); err != nil {
		r.logger.Debug("process group kill failed", "pid", pid, "error", err)
	}
	killAll(descendantsOf(pid))
}

func exitCode(cmd *exec.Cmd, err error) *int {
	if err == nil {
		code := 0
		return &code
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return &code
	}
	if cmd.ProcessState != nil {
		code := cmd.ProcessState.ExitCode()
		return &code
	}
	return nil
}

// capture collects output lines and optionally echoes them to a sink.
type capture struct {
	verbose bool
	sink    io.Writer

	mu    sync.Mutex
	lines []string
}

func (c *capture) consume(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		line := sc.Text()

		c.mu.Lock()
		c.lines = append(c.lines, line)
		c.mu.Unlock()

		if c.verbose && c.sink != nil {
			fmt.Fprintln(c.sink, line)
		}
	}

	// An over-long line stops the scanner; keep draining so the child never blocks on a full pipe.
	if sc.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

func (c *capture) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}
