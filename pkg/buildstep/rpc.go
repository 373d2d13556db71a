package buildstep

import (
	"context"
	"errors"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// BuildStepRPC implements the go-plugin Plugin interface.
type BuildStepRPC struct {
	plugin.Plugin
	Impl BuildStep
}

// Server returns an RPC server for this plugin.
func (p *BuildStepRPC) Server(*plugin.MuxBroker) (any, error) {
	return &BuildStepRPCServer{Impl: p.Impl}, nil
}

// Client returns an RPC client for this plugin.
func (p *BuildStepRPC) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &BuildStepRPCClient{client: c}, nil
}

// BuildStepRPCServer is the RPC server implementation.
type BuildStepRPCServer struct {
	Impl BuildStep
}

// Invoke implements the RPC method for running the build step. A failed
// invocation is reported in resp.Error so the log still reaches the host.
func (s *BuildStepRPCServer) Invoke(req InvokeRequest, resp *InvokeResponse) error {
	result, err := s.Impl.Invoke(context.Background(), req)
	*resp = result
	if err != nil {
		resp.Error = err.Error()
	}
	return nil
}

// Configure implements the RPC method for updating configuration.
func (s *BuildStepRPCServer) Configure(req ConfigRequest, resp *string) error {
	if err := s.Impl.Configure(context.Background(), req); err != nil {
		*resp = err.Error()
		return err
	}
	return nil
}

// GetMetadata implements the RPC method for fetching metadata.
func (s *BuildStepRPCServer) GetMetadata(_ any, resp *Info) error {
	*resp = s.Impl.GetMetadata()
	return nil
}

// BuildStepRPCClient is the RPC client implementation.
type BuildStepRPCClient struct {
	client *rpc.Client
}

// Invoke calls the remote Invoke method. A remote failure is returned as an
// error alongside the response carrying the log.
func (c *BuildStepRPCClient) Invoke(_ context.Context, req InvokeRequest) (InvokeResponse, error) {
	var resp InvokeResponse
	if err := c.client.Call("Plugin.Invoke", req, &resp); err != nil {
		return resp, err
	}
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

// Configure calls the remote Configure method.
func (c *BuildStepRPCClient) Configure(_ context.Context, req ConfigRequest) error {
	var resp string
	return c.client.Call("Plugin.Configure", req, &resp)
}

// GetMetadata calls the remote GetMetadata method.
func (c *BuildStepRPCClient) GetMetadata() Info {
	var info Info
	if err := c.client.Call("Plugin.GetMetadata", new(any), &info); err != nil {
		return Info{}
	}
	return info
}

var _ BuildStep = (*BuildStepRPCClient)(nil)
