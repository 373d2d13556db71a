package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/commentstrip/internal/failure"
	"github.com/jmylchreest/commentstrip/internal/security"
)

// Request is one build step's parameters. Filename and OutputDir are relative
// to WorkspaceRoot.
type Request struct {
	WorkspaceRoot string
	Filename      string
	Language      string
	OutputDir     string
}

// Validate reports every rejected field at once, one message per field.
func (r Request) Validate() error {
	verr := &failure.ValidationError{}

	root := strings.TrimSpace(r.WorkspaceRoot)
	if root == "" {
		verr.Add("workspace", "Please set a workspace")
	}

	if strings.TrimSpace(r.Filename) == "" {
		verr.Add("filename", "Please set a filename")
	} else if root != "" {
		if err := security.ValidateRelativePath(r.Filename, root, false); err != nil {
			verr.Add("filename", err.Error())
		}
	}

	if strings.TrimSpace(r.Language) == "" {
		verr.Add("language", "Please set a language")
	}

	if strings.TrimSpace(r.OutputDir) == "" {
		verr.Add("outputDir", "Please set output directory")
	} else if root != "" {
		if err := security.ValidateRelativePath(r.OutputDir, root, false); err != nil {
			verr.Add("outputDir", err.Error())
		} else if strings.TrimSpace(r.Filename) != "" && within(filepath.Join(root, r.Filename), filepath.Join(root, r.OutputDir)) {
			// The output directory is wiped before the tool runs.
			verr.Add("outputDir", fmt.Sprintf("output directory %s contains the input file", r.OutputDir))
		}
	}

	return verr.OrNil()
}

// InputPath returns the absolute path of the file to process.
func (r Request) InputPath() (string, error) {
	root, err := filepath.Abs(r.WorkspaceRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return filepath.Join(root, r.Filename), nil
}

// OutputPath returns the absolute output directory.
func (r Request) OutputPath() (string, error) {
	root, err := filepath.Abs(r.WorkspaceRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return filepath.Join(root, r.OutputDir), nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
