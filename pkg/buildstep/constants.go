// Package buildstep provides the public API a host build system uses to
// drive commentstrip over go-plugin RPC.
package buildstep

import (
	"github.com/hashicorp/go-plugin"
)

const (
	// ProtocolVersion defines the current RPC API version.
	// Format: MAJOR.MINOR.PATCH.
	// - Increment MAJOR for breaking changes (incompatible API changes).
	// - Increment MINOR for backward-compatible additions.
	ProtocolVersion = "1.0.0"

	// PluginName is the key the RPC surface is registered under in a plugin set.
	PluginName = "buildstep"

	// Symbol is the identifier hosts use for this build step.
	Symbol = "commentsremover"

	// DisplayName is the build step's human readable title.
	DisplayName = "Invoke Comments Remover"
)

// Handshake is the handshake configuration for go-plugin protocol.
// A host and server only connect when the cookie and major version match.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1, // Major version from ProtocolVersion
	MagicCookieKey:   "COMMENTSTRIP_BUILDSTEP",
	MagicCookieValue: "comments_remover",
}

// PluginMap returns the plugin set served by `commentstrip serve`.
func PluginMap(impl BuildStep) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginName: &BuildStepRPC{Impl: impl},
	}
}
