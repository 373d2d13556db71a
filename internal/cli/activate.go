package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/commentstrip/internal/pipeline"
)

func newActivateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Provision the comment remover under the home directory",
		Long: `Extract the bundled comments_remover archive into <home>/comments_remover,
replacing any earlier copy. Run it again after upgrading commentstrip.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := opts.service(logger, pipeline.Options{})
			if err != nil {
				return err
			}

			tool, err := svc.OnActivate(cmd.Context())
			if err != nil {
				return opts.activationError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comments remover provisioned at %s\n", tool.RootDir)
			return nil
		},
	}
}
