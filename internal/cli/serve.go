package cli

import (
	"github.com/hashicorp/go-plugin"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/commentstrip/internal/pipeline"
	"github.com/jmylchreest/commentstrip/internal/service"
	"github.com/jmylchreest/commentstrip/pkg/buildstep"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var po pipeline.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build step to a host over go-plugin RPC",
		Long: `Activate the comment remover, then serve the build step RPC interface.
This command is started by a go-plugin host and is not meant to be run by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The host parses structured log lines from the plugin's stderr.
			opts.logJSON = true
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			svc, err := opts.service(logger, po)
			if err != nil {
				return err
			}
			if _, err := svc.OnActivate(cmd.Context()); err != nil {
				return opts.activationError(err)
			}

			plugin.Serve(&plugin.ServeConfig{
				HandshakeConfig: buildstep.Handshake,
				Plugins:         buildstep.PluginMap(service.NewBuildStep(svc)),
				Logger:          logger,
			})
			return nil
		},
	}

	cmd.Flags().DurationVar(&po.StepTimeout, "step-timeout", pipeline.DefaultStepTimeout, "maximum duration of each external process")
	cmd.Flags().BoolVar(&po.TolerateInstallFailure, "tolerate-install-failure", false, "continue when installing requirements fails")
	return cmd
}
