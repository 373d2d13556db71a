// commentstrip - strip comments from source files as a build step.
//
// commentstrip provisions the bundled comments_remover tool and runs it
// against workspace files, either from the command line or on behalf of a
// host build system over go-plugin RPC.
package main

import (
	"os"

	"github.com/jmylchreest/commentstrip/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
