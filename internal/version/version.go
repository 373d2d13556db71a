// Package version holds build metadata injected with ldflags, e.g.
//
//	-ldflags "-X github.com/jmylchreest/commentstrip/internal/version.Version=1.2.0
//	          -X github.com/jmylchreest/commentstrip/internal/version.Commit=$(git rev-parse HEAD)
//	          -X github.com/jmylchreest/commentstrip/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"runtime"
)

const unknown = "unknown"

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = unknown

	// Date is the RFC3339 build time.
	Date = unknown
)

// Info is the full build description.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build description of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the build description on one line.
func (i Info) String() string {
	if i.Commit == unknown || i.Date == unknown {
		return fmt.Sprintf("commentstrip %s (%s, %s)", i.Version, i.GoVersion, i.Platform)
	}
	commit := i.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("commentstrip %s (commit %s, built %s, %s, %s)", i.Version, commit, i.Date, i.GoVersion, i.Platform)
}
