// Package bundle exposes the packaged resources the tool archive is loaded from.
package bundle

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed assets
var assets embed.FS

// Embedded returns the resources compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// "assets" is a literal embedded directory; Sub cannot fail on it.
		panic(err)
	}
	return sub
}

// Dir returns the resources found in a directory on disk.
func Dir(path string) fs.FS {
	return os.DirFS(path)
}

// Resolve returns Dir(path) when path is set and the embedded resources otherwise.
func Resolve(path string) fs.FS {
	if path != "" {
		return Dir(path)
	}
	return Embedded()
}
