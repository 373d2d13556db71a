package service

import (
	"context"

	"github.com/jmylchreest/commentstrip/internal/config"
	"github.com/jmylchreest/commentstrip/internal/pipeline"
	"github.com/jmylchreest/commentstrip/internal/sink"
	"github.com/jmylchreest/commentstrip/internal/version"
	"github.com/jmylchreest/commentstrip/pkg/buildstep"
)

// BuildStep exposes a Service through the public RPC interface. The build
// log is recorded and returned with the response instead of streamed.
type BuildStep struct {
	svc *Service
}

// NewBuildStep wraps svc for serving over RPC.
func NewBuildStep(svc *Service) *BuildStep {
	return &BuildStep{svc: svc}
}

var _ buildstep.BuildStep = (*BuildStep)(nil)

// Invoke runs one build step and returns its recorded log.
func (b *BuildStep) Invoke(ctx context.Context, req buildstep.InvokeRequest) (buildstep.InvokeResponse, error) {
	rec := sink.NewRecorder()
	result, err := b.svc.OnInvoke(ctx, pipeline.Request{
		WorkspaceRoot: req.WorkspaceRoot,
		Filename:      req.Filename,
		Language:      req.Language,
		OutputDir:     req.OutputDir,
	}, rec)

	resp := buildstep.InvokeResponse{Log: rec.Lines()}
	if result != nil {
		resp.OutputDir = result.OutputDir
		if result.Install != nil {
			resp.InstallExitCode = result.Install.ExitCode
		}
		if result.Transform != nil {
			resp.TransformExitCode = result.Transform.ExitCode
		}
	}
	return resp, err
}

// Configure replaces the persisted configuration.
func (b *BuildStep) Configure(_ context.Context, req buildstep.ConfigRequest) error {
	return b.svc.Configure(config.Update{
		InterpreterPath: req.PythonPath,
		InstallerPath:   req.PipPath,
		Verbose:         req.Verbose,
	})
}

// GetMetadata describes the build step.
func (b *BuildStep) GetMetadata() buildstep.Info {
	return buildstep.Info{
		Name:            buildstep.Symbol,
		DisplayName:     buildstep.DisplayName,
		Version:         version.Version,
		ProtocolVersion: buildstep.ProtocolVersion,
		Description:     "Removes comments from a workspace source file using the bundled comments_remover tool",
	}
}
