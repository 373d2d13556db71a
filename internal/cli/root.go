// Package cli provides the command-line interface for commentstrip.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/jmylchreest/commentstrip/internal/bundle"
	"github.com/jmylchreest/commentstrip/internal/config"
	"github.com/jmylchreest/commentstrip/internal/failure"
	"github.com/jmylchreest/commentstrip/internal/pipeline"
	"github.com/jmylchreest/commentstrip/internal/provision"
	"github.com/jmylchreest/commentstrip/internal/service"
	"github.com/jmylchreest/commentstrip/internal/version"
)

const (
	envHome     = "COMMENTSTRIP_HOME"
	envLogLevel = "COMMENTSTRIP_LOG_LEVEL"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	home       string
	configPath string
	bundleDir  string
	archive    string
	logLevel   string
	logJSON    bool
}

func (o *globalOptions) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.home, "home", envOr(envHome, defaultHome()), "directory the comment remover is provisioned under (env "+envHome+")")
	flags.StringVar(&o.configPath, "config", "", "configuration file (default $"+config.EnvConfigPath+" or the user config directory)")
	flags.StringVar(&o.bundleDir, "bundle", "", "directory holding the tool archive instead of the embedded bundle")
	flags.StringVar(&o.archive, "bundle-archive", provision.ArchiveName, "tool archive name inside the bundle (.zip, .tar.gz, .tar.xz or .tar.bz2)")
	flags.StringVar(&o.logLevel, "log-level", envOr(envLogLevel, "warn"), "diagnostic log level: trace, debug, info, warn, error, off (env "+envLogLevel+")")
	flags.BoolVar(&o.logJSON, "log-json", false, "emit diagnostics as JSON")
}

// logger builds the diagnostic logger. Colour is only used on a terminal.
func (o *globalOptions) logger(w io.Writer) (hclog.Logger, error) {
	level := hclog.LevelFromString(o.logLevel)
	if level == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level %q", o.logLevel)
	}

	colour := hclog.ColorOff
	if f, ok := w.(*os.File); ok && !o.logJSON && term.IsTerminal(int(f.Fd())) {
		colour = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "commentstrip",
		Level:      level,
		Output:     w,
		JSONFormat: o.logJSON,
		Color:      colour,
	}), nil
}

// store loads the configuration file selected by --config or its default.
func (o *globalOptions) store() (*config.Store, error) {
	path := o.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// service wires a Service from the global options.
func (o *globalOptions) service(logger hclog.Logger, opts pipeline.Options) (*service.Service, error) {
	store, err := o.store()
	if err != nil {
		return nil, err
	}
	return service.NewBuilder().
		WithConfigStore(store).
		WithHome(o.home).
		WithBundle(bundle.Resolve(o.bundleDir), o.archive).
		WithLogger(logger).
		WithOptions(opts).
		Build()
}

// activationError wraps a provisioning failure, pointing at --bundle when the
// binary was built without an embedded archive.
func (o *globalOptions) activationError(err error) error {
	if errors.Is(err, failure.ErrResourceNotFound) && o.bundleDir == "" {
		return fmt.Errorf("activation failed: %w (this binary embeds no %s; pass --bundle <dir>)", err, o.archive)
	}
	return fmt.Errorf("activation failed: %w", err)
}

// NewRootCmd builds the commentstrip command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "commentstrip",
		Short: "Strip comments from source files as a build step",
		Long: `commentstrip provisions the bundled comments_remover tool into a local
directory and runs it against workspace files: it installs the tool's Python
requirements, clears the output directory and writes the stripped file there.

Run "commentstrip activate" once, then "commentstrip run" per file, or let a
host build system drive both over RPC with "commentstrip serve".`,
		Version:      version.Get().Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(version.Get().String() + "\n")

	opts.register(cmd.PersistentFlags())

	cmd.AddCommand(
		newActivateCmd(opts),
		newRunCmd(opts),
		newConfigCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}

func defaultHome() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "commentstrip")
	}
	return filepath.Join(os.TempDir(), "commentstrip")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
