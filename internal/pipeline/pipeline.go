// Package pipeline runs one invocation of the comment remover: install the
// tool's dependencies, reset the output directory, run the tool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/commentstrip/internal/config"
	"github.com/jmylchreest/commentstrip/internal/failure"
	"github.com/jmylchreest/commentstrip/internal/provision"
	"github.com/jmylchreest/commentstrip/internal/runner"
	"github.com/jmylchreest/commentstrip/internal/sink"
)

// DefaultStepTimeout bounds each external process.
const DefaultStepTimeout = 60 * time.Second

// ErrNonZeroExit marks a step whose process exited unsuccessfully.
var ErrNonZeroExit = errors.New("non-zero exit status")

// Step names a pipeline stage in errors and logs.
type Step string

const (
	StepInstall   Step = "install"
	StepTransform Step = "transform"
)

// StepError reports which step failed and the command it was running.
type StepError struct {
	Step    Step
	Command runner.Command
	Outcome *runner.Outcome
	Err     error
}

func (e *StepError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s step failed [%s]: %v", e.Step, e.Command, e.Err)
	case e.Outcome != nil && e.Outcome.TimedOut:
		return fmt.Sprintf("%s step timed out after %s [%s]", e.Step, e.Outcome.Duration.Round(time.Millisecond), e.Command)
	case e.Outcome != nil && e.Outcome.ExitCode != nil:
		return fmt.Sprintf("%s step exited with status %d [%s]", e.Step, *e.Outcome.ExitCode, e.Command)
	default:
		return fmt.Sprintf("%s step failed [%s]", e.Step, e.Command)
	}
}

// Unwrap exposes the failure kind: the runner error, ErrTimeout or ErrNonZeroExit.
func (e *StepError) Unwrap() error {
	switch {
	case e.Err != nil:
		return e.Err
	case e.Outcome != nil && e.Outcome.TimedOut:
		return failure.ErrTimeout
	default:
		return ErrNonZeroExit
	}
}

// Options tunes a Pipeline.
type Options struct {
	// StepTimeout bounds each process. Zero means DefaultStepTimeout.
	StepTimeout time.Duration

	// TolerateInstallFailure logs a failed or timed out dependency install
	// and carries on. By default the invocation aborts instead.
	TolerateInstallFailure bool
}

// Result describes a finished invocation.
type Result struct {
	OutputDir string
	Install   *runner.Outcome
	Transform *runner.Outcome
}

// Pipeline executes invocations. It holds no per-invocation state and may be
// shared between concurrent invocations.
type Pipeline struct {
	runner runner.Runner
	logger hclog.Logger
	opts   Options
}

// New creates a Pipeline. A nil logger discards diagnostics.
func New(r runner.Runner, logger hclog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	return &Pipeline{runner: r, logger: logger, opts: opts}
}

// BuildInstallCommand builds the dependency installation command.
func BuildInstallCommand(installer string, tool provision.Tool) runner.Command {
	return runner.Command{
		Path: installer,
		Args: []string{"install", "-r", tool.Requirements(), "-q"},
	}
}

// BuildTransformCommand builds the tool command. The entry script takes
// positional arguments: input file, language, output directory.
func BuildTransformCommand(interpreter string, tool provision.Tool, inputPath, language, outputDir string) runner.Command {
	return runner.Command{
		Path: interpreter,
		Args: []string{tool.EntryScript(), inputPath, language, outputDir},
	}
}

// Execute runs the install and transform steps for one request, writing
// progress to out. Steps run strictly in sequence with no retries.
func (p *Pipeline) Execute(ctx context.Context, cfg config.Tool, tool provision.Tool, req Request, out io.Writer) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inputPath, err := req.InputPath()
	if err != nil {
		return nil, err
	}
	outputDir, err := req.OutputPath()
	if err != nil {
		return nil, err
	}

	log := sink.New(out)
	logger := p.logger.With("invocation", uuid.NewString(), "filename", req.Filename, "language", req.Language)
	result := &Result{OutputDir: outputDir}

	log.Printf("Invoking Comments Remover for filename: %s and language: %s", req.Filename, req.Language)

	install := BuildInstallCommand(cfg.Installer(), tool)
	log.Printf("Installing pip requirements [%s]...", install)
	result.Install, err = p.runStep(ctx, StepInstall, install, cfg.Verbose, log)
	if err != nil {
		if !p.tolerated(ctx, err) {
			logger.Error("dependency installation failed", "error", err)
			return result, err
		}
		logger.Warn("dependency installation failed, continuing", "error", err)
		log.Printf("Continuing despite failed dependency installation: %v", err)
	}

	if err := resetDir(outputDir); err != nil {
		log.Printf("Failed to prepare output directory %s: %v", outputDir, err)
		return result, err
	}
	logger.Debug("output directory reset", "path", outputDir)

	transform := BuildTransformCommand(cfg.Interpreter(), tool, inputPath, req.Language, outputDir)
	log.Printf("Executing script [%s]...", transform)
	result.Transform, err = p.runStep(ctx, StepTransform, transform, cfg.Verbose, log)
	if err != nil {
		logger.Error("comment removal failed", "error", err)
		return result, err
	}

	log.Printf("Comments Remover finished processing. Output saved to directory: %s", outputDir)
	logger.Info("invocation finished", "output_dir", outputDir, "duration", result.Install.Duration+result.Transform.Duration)

	return result, nil
}

// runStep runs one command and converts anything but a clean exit into a StepError.
func (p *Pipeline) runStep(ctx context.Context, step Step, cmd runner.Command, verbose bool, log *sink.Logger) (*runner.Outcome, error) {
	outcome, err := p.runner.Run(ctx, cmd, runner.Options{
		Verbose: verbose,
		Timeout: p.opts.StepTimeout,
		Sink:    log,
	})
	if outcome == nil {
		outcome = &runner.Outcome{}
	}

	var stepErr *StepError
	switch {
	case err != nil:
		stepErr = &StepError{Step: step, Command: cmd, Outcome: outcome, Err: err}
	case !outcome.Success():
		stepErr = &StepError{Step: step, Command: cmd, Outcome: outcome}
	default:
		return outcome, nil
	}

	log.Printf("Comments Remover %s step failed: %v", step, stepErr)
	if !verbose && len(outcome.Lines) > 0 {
		// Quiet mode hid the output; show it now that it matters.
		for _, line := range outcome.Lines {
			log.Println(line)
		}
	}
	return outcome, stepErr
}

// tolerated reports whether an install failure may be ignored. Launch errors
// and cancellation always abort.
func (p *Pipeline) tolerated(ctx context.Context, err error) bool {
	if !p.opts.TolerateInstallFailure || ctx.Err() != nil {
		return false
	}
	return errors.Is(err, ErrNonZeroExit) || errors.Is(err, failure.ErrTimeout)
}

// resetDir deletes dir and everything in it, then recreates it empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return failure.IO("clear output directory", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - output is consumed by later build steps
		return failure.IO("create output directory", err)
	}
	return nil
}
