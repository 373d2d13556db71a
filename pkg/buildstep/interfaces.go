package buildstep

import (
	"context"
)

// BuildStep is the interface the RPC server exposes to host build systems.
type BuildStep interface {
	// Invoke runs the comment remover against one workspace file. The
	// response carries the build log even when the invocation fails.
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error)

	// Configure replaces the persisted tool configuration.
	Configure(ctx context.Context, req ConfigRequest) error

	// GetMetadata returns build step metadata.
	GetMetadata() Info
}
