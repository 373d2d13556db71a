package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Call records one invocation of MockRunner.Run.
type Call struct {
	Command Command
	Options Options
}

// MockRunner is a mock implementation of Runner for testing.
type MockRunner struct {
	// RunFunc allows tests to provide custom behavior
	RunFunc func(ctx context.Context, cmd Command, opts Options) (*Outcome, error)

	// Delay simulates slow process execution
	Delay time.Duration

	// ShouldTimeout if true, reports a timed out, terminated process
	ShouldTimeout bool

	mu    sync.Mutex
	calls []Call
}

// Run executes the mock behavior.
func (m *MockRunner) Run(ctx context.Context, cmd Command, opts Options) (*Outcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Command: cmd, Options: opts})
	m.mu.Unlock()

	if m.ShouldTimeout {
		return &Outcome{TimedOut: true, Terminated: true, Duration: opts.Timeout}, nil
	}

	// Simulate delay
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return &Outcome{Terminated: true}, ctx.Err()
		}
	}

	// Use custom function if provided
	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd, opts)
	}

	// Default: return empty success
	return Exited(0), nil
}

// Calls returns the recorded invocations in order.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount tracks how many times Run was called
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Exited builds an outcome for a process that exited with code and printed lines.
func Exited(code int, lines ...string) *Outcome {
	return &Outcome{ExitCode: &code, Lines: lines}
}

// NewMockRunner creates a new mock process runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// NewTimeoutMockRunner creates a mock that simulates a timeout.
func NewTimeoutMockRunner() *MockRunner {
	return &MockRunner{
		ShouldTimeout: true,
	}
}

// NewDelayMockRunner creates a mock that simulates a slow process.
func NewDelayMockRunner(delay time.Duration) *MockRunner {
	return &MockRunner{
		Delay: delay,
	}
}

// NewLaunchErrorMockRunner creates a mock whose executables never start.
func NewLaunchErrorMockRunner() *MockRunner {
	return &MockRunner{
		RunFunc: func(_ context.Context, cmd Command, _ Options) (*Outcome, error) {
			return nil, &LaunchError{Path: cmd.Path, Err: errors.New("executable file not found in $PATH")}
		},
	}
}

// NewOutputMockRunner creates a mock that prints lines, echoing them to the
// sink when verbose just as ExecRunner does, and exits with code.
func NewOutputMockRunner(code int, lines ...string) *MockRunner {
	return &MockRunner{
		RunFunc: func(_ context.Context, _ Command, opts Options) (*Outcome, error) {
			if opts.Verbose && opts.Sink != nil {
				for _, l := range lines {
					fmt.Fprintln(opts.Sink, l)
				}
			}
			return Exited(code, lines...), nil
		},
	}
}
