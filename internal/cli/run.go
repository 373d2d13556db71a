package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/commentstrip/internal/failure"
	"github.com/jmylchreest/commentstrip/internal/pipeline"
)

type runOptions struct {
	workspace      string
	filename       string
	language       string
	outputDir      string
	stepTimeout    time.Duration
	tolerateFailed bool
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Strip comments from one workspace file",
		Long: `Install the comment remover's requirements, reset the output directory and
run the remover against a file. Progress and tool output go to stdout.`,
		Example: `  commentstrip run --workspace . --filename src/app.py --language python --output-dir build/stripped`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInvoke(cmd, opts, ro)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&ro.workspace, "workspace", "w", ".", "workspace root the other paths are relative to")
	flags.StringVarP(&ro.filename, "filename", "f", "", "file to process, relative to the workspace")
	flags.StringVarP(&ro.language, "language", "l", "", "language of the file (e.g. python, go, javascript)")
	flags.StringVarP(&ro.outputDir, "output-dir", "o", "", "output directory, relative to the workspace; cleared before each run")
	flags.DurationVar(&ro.stepTimeout, "step-timeout", pipeline.DefaultStepTimeout, "maximum duration of each external process")
	flags.BoolVar(&ro.tolerateFailed, "tolerate-install-failure", false, "continue when installing requirements fails")

	return cmd
}

func runInvoke(cmd *cobra.Command, opts *globalOptions, ro *runOptions) error {
	logger, err := opts.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	svc, err := opts.service(logger, pipeline.Options{
		StepTimeout:            ro.stepTimeout,
		TolerateInstallFailure: ro.tolerateFailed,
	})
	if err != nil {
		return err
	}

	if _, err := svc.Attach(); err != nil {
		if errors.Is(err, failure.ErrNotActivated) {
			return fmt.Errorf("%w (run \"commentstrip activate\" first)", err)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = svc.OnInvoke(ctx, pipeline.Request{
		WorkspaceRoot: ro.workspace,
		Filename:      ro.filename,
		Language:      ro.language,
		OutputDir:     ro.outputDir,
	}, cmd.OutOrStdout())
	return err
}
