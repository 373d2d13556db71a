package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/commentstrip/internal/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the interpreter, installer and verbosity settings",
	}
	cmd.AddCommand(newConfigShowCmd(opts), newConfigSetCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.store()
			if err != nil {
				return err
			}
			cfg := store.Tool()

			t := newTable("SETTING", "CONFIGURED", "EFFECTIVE")
			t.addRow("python", orDefault(cfg.InterpreterPath), cfg.Interpreter())
			t.addRow("pip", orDefault(cfg.InstallerPath), cfg.Installer())
			t.addRow("verbose", strconv.FormatBool(cfg.Verbose), strconv.FormatBool(cfg.Verbose))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration file: %s\n\n", store.Path())
			fmt.Fprint(out, t.render())
			return nil
		},
	}
}

func newConfigSetCmd(opts *globalOptions) *cobra.Command {
	var (
		python  string
		pip     string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change configuration settings",
		Long: `Change configuration settings. Flags that are not given keep their current
value; pass an empty string to go back to the platform default executable.`,
		Example: `  commentstrip config set --python /usr/bin/python3 --pip /usr/bin/pip3
  commentstrip config set --verbose=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("python") && !flags.Changed("pip") && !flags.Changed("verbose") {
				return fmt.Errorf("nothing to set: pass --python, --pip or --verbose")
			}

			store, err := opts.store()
			if err != nil {
				return err
			}

			cur := store.Tool()
			update := config.Update{
				InterpreterPath: cur.InterpreterPath,
				InstallerPath:   cur.InstallerPath,
				Verbose:         cur.Verbose,
			}
			if flags.Changed("python") {
				update.InterpreterPath = python
			}
			if flags.Changed("pip") {
				update.InstallerPath = pip
			}
			if flags.Changed("verbose") {
				update.Verbose = verbose
			}

			if err := store.Update(update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&python, "python", "", "Python interpreter (default \""+config.DefaultInterpreter+"\")")
	cmd.Flags().StringVar(&pip, "pip", "", "pip executable (default \""+config.DefaultInstaller+"\")")
	cmd.Flags().BoolVar(&verbose, "verbose", true, "stream tool output to the build log")
	return cmd
}

func orDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}
