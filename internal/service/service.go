// Package service ties provisioning, configuration and the invocation
// pipeline together behind the two lifecycle entry points a host calls:
// OnActivate once when the integration loads and OnInvoke per build step.
package service

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/commentstrip/internal/bundle"
	"github.com/jmylchreest/commentstrip/internal/config"
	"github.com/jmylchreest/commentstrip/internal/failure"
	"github.com/jmylchreest/commentstrip/internal/pipeline"
	"github.com/jmylchreest/commentstrip/internal/provision"
	"github.com/jmylchreest/commentstrip/internal/runner"
)

// Builder provides a fluent interface for constructing a Service.
type Builder struct {
	store    *config.Store
	home     string
	bundle   fs.FS
	resource string
	layout   provision.Layout
	runner   runner.Runner
	logger   hclog.Logger
	opts     pipeline.Options
}

// NewBuilder creates a Builder with the shipped bundle and layout, an
// in-memory default configuration and the real process runner.
func NewBuilder() *Builder {
	return &Builder{
		bundle:   bundle.Embedded(),
		resource: provision.ArchiveName,
		layout:   provision.DefaultLayout(),
	}
}

// WithConfigStore sets the configuration store.
func (b *Builder) WithConfigStore(store *config.Store) *Builder {
	b.store = store
	return b
}

// WithHome sets the directory the tool is provisioned under.
func (b *Builder) WithHome(dir string) *Builder {
	b.home = dir
	return b
}

// WithBundle replaces the resource bundle and the archive name inside it.
func (b *Builder) WithBundle(fsys fs.FS, resource string) *Builder {
	b.bundle = fsys
	if resource != "" {
		b.resource = resource
	}
	return b
}

// WithLayout overrides the expected tool layout (useful for testing).
func (b *Builder) WithLayout(layout provision.Layout) *Builder {
	b.layout = layout
	return b
}

// WithRunner overrides the process runner (useful for testing).
func (b *Builder) WithRunner(r runner.Runner) *Builder {
	b.runner = r
	return b
}

// WithLogger sets the diagnostic logger.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithOptions sets the pipeline options.
func (b *Builder) WithOptions(opts pipeline.Options) *Builder {
	b.opts = opts
	return b
}

// Build constructs the Service. Home is required.
func (b *Builder) Build() (*Service, error) {
	if b.home == "" {
		return nil, fmt.Errorf("service home directory is not set")
	}

	logger := b.logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	store := b.store
	if store == nil {
		store = config.NewMemoryStore(config.Defaults())
	}
	r := b.runner
	if r == nil {
		r = runner.NewExecRunner(logger.Named("runner"))
	}

	return &Service{
		store:       store,
		home:        b.home,
		bundle:      b.bundle,
		resource:    b.resource,
		provisioner: provision.New(logger.Named("provision"), b.layout),
		pipeline:    pipeline.New(r, logger.Named("pipeline"), b.opts),
		logger:      logger,
	}, nil
}

// Service owns the provisioned tool. Invocations share it; activation
// replaces it and waits for running invocations to finish first.
type Service struct {
	store       *config.Store
	home        string
	bundle      fs.FS
	resource    string
	provisioner *provision.Provisioner
	pipeline    *pipeline.Pipeline
	logger      hclog.Logger

	mu     sync.RWMutex
	tool   provision.Tool
	active bool
}

// OnActivate provisions the bundled tool under the service home. A failure
// leaves the service inactive.
func (s *Service) OnActivate(ctx context.Context) (provision.Tool, error) {
	if err := ctx.Err(); err != nil {
		return provision.Tool{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	if err := os.MkdirAll(s.home, 0o755); err != nil { // #nosec G301 - tool directory is read by child processes
		return provision.Tool{}, failure.IO("create home directory", err)
	}

	tool, err := s.provisioner.Provision(s.bundle, s.resource, s.home)
	if err != nil {
		s.logger.Error("activation failed", "home", s.home, "error", err)
		return provision.Tool{}, err
	}

	s.tool = tool
	s.active = true
	s.logger.Info("activated", "tool_dir", tool.RootDir)
	return tool, nil
}

// Attach adopts a tool a previous activation left under the service home.
func (s *Service) Attach() (provision.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tool, err := s.provisioner.Open(s.home)
	if err != nil {
		return provision.Tool{}, err
	}
	s.tool = tool
	s.active = true
	return tool, nil
}

// Tool returns the active tool and whether the service is activated.
func (s *Service) Tool() (provision.Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool, s.active
}

// OnInvoke runs one build step against the active tool, writing the build log to out.
func (s *Service) OnInvoke(ctx context.Context, req pipeline.Request, out io.Writer) (*pipeline.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.active {
		return nil, failure.ErrNotActivated
	}
	return s.pipeline.Execute(ctx, s.store.Tool(), s.tool, req, out)
}

// Configure replaces the persisted tool configuration.
func (s *Service) Configure(u config.Update) error {
	if err := s.store.Update(u); err != nil {
		return err
	}
	s.logger.Debug("configuration updated", "interpreter", u.InterpreterPath, "installer", u.InstallerPath, "verbose", u.Verbose)
	return nil
}

// Config returns a snapshot of the current configuration.
func (s *Service) Config() config.Tool {
	return s.store.Tool()
}
