// Package provision unpacks the bundled comment-removal tool into a stable
// directory so invocations can run it.
package provision

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/commentstrip/internal/compression"
	"github.com/jmylchreest/commentstrip/internal/failure"
)

const (
	// ToolDirName is the directory created under the parent.
	ToolDirName = "comments_remover"

	// ArchiveName is the bundled archive resource.
	ArchiveName = "comments_remover.zip"
)

// Layout names the files a tool bundle must carry at its root.
type Layout struct {
	EntryScript  string
	Requirements string
}

// DefaultLayout is the layout of the shipped comment remover.
func DefaultLayout() Layout {
	return Layout{
		EntryScript:  "comments_remover.py",
		Requirements: "requirements.txt",
	}
}

// Tool is a provisioned tool directory. It is read-only once returned.
type Tool struct {
	RootDir string
	Layout  Layout
}

// EntryScript returns the absolute path of the script the interpreter runs.
func (t Tool) EntryScript() string {
	return filepath.Join(t.RootDir, t.Layout.EntryScript)
}

// Requirements returns the absolute path of the dependency manifest.
func (t Tool) Requirements() string {
	return filepath.Join(t.RootDir, t.Layout.Requirements)
}

// Provisioner extracts tool bundles.
type Provisioner struct {
	logger   hclog.Logger
	layout   Layout
	maxBytes int64
}

// New creates a Provisioner. A nil logger discards diagnostics.
func New(logger hclog.Logger, layout Layout) *Provisioner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Provisioner{logger: logger, layout: layout, maxBytes: compression.DefaultMaxBytes}
}

// Provision copies resourceName out of bundle into a temporary archive under
// parentDir, extracts it and swaps the result into parentDir/ToolDirName,
// replacing whatever an earlier activation left there. parentDir must exist.
//
// The extraction happens in a staging directory, so a failure leaves neither
// a half-written tool directory nor the temporary archive behind.
func (p *Provisioner) Provision(bundle fs.FS, resourceName, parentDir string) (Tool, error) {
	info, err := os.Stat(parentDir)
	if err != nil {
		return Tool{}, failure.IO("stat parent directory", err)
	}
	if !info.IsDir() {
		return Tool{}, failure.IO("stat parent directory", fmt.Errorf("%s is not a directory", parentDir))
	}

	targetDir := filepath.Join(parentDir, ToolDirName)

	archivePath, err := p.copyResource(bundle, resourceName, parentDir)
	if err != nil {
		return Tool{}, err
	}
	defer func() {
		// Normal path removes it explicitly; this only catches early returns.
		_ = os.Remove(archivePath)
	}()

	stagingDir := filepath.Join(parentDir, "."+ToolDirName+"-"+uuid.NewString())
	p.logger.Info("unpacking tool bundle", "resource", resourceName, "target", targetDir)

	result, err := compression.ExtractArchive(archivePath, stagingDir, compression.ExtractOptions{MaxBytes: p.maxBytes})
	if err != nil {
		_ = os.RemoveAll(stagingDir)
		return Tool{}, failure.IO("extract "+resourceName, err)
	}

	staged := Tool{RootDir: stagingDir, Layout: p.layout}
	if err := verifyLayout(staged); err != nil {
		_ = os.RemoveAll(stagingDir)
		return Tool{}, err
	}

	if _, err := os.Stat(targetDir); err == nil {
		p.logger.Info("removing previous tool directory", "path", targetDir)
	}
	if err := os.RemoveAll(targetDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return Tool{}, failure.IO("remove previous tool directory", err)
	}
	if err := os.Rename(stagingDir, targetDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return Tool{}, failure.IO("install tool directory", err)
	}

	if err := os.Remove(archivePath); err != nil {
		return Tool{}, failure.IO("remove temporary archive", err)
	}

	p.logger.Info("tool provisioned",
		"path", targetDir,
		"format", result.Format,
		"files", result.Files,
		"size", humanize.Bytes(uint64(result.Bytes)), // #nosec G115 - byte counts are never negative
	)

	return Tool{RootDir: targetDir, Layout: p.layout}, nil
}

// Open attaches to a tool directory provisioned by an earlier activation.
func (p *Provisioner) Open(parentDir string) (Tool, error) {
	tool := Tool{RootDir: filepath.Join(parentDir, ToolDirName), Layout: p.layout}

	info, err := os.Stat(tool.RootDir)
	if errors.Is(err, fs.ErrNotExist) {
		return Tool{}, fmt.Errorf("%w: %s does not exist", failure.ErrNotActivated, tool.RootDir)
	}
	if err != nil {
		return Tool{}, failure.IO("stat tool directory", err)
	}
	if !info.IsDir() {
		return Tool{}, fmt.Errorf("%w: %s is not a directory", failure.ErrNotActivated, tool.RootDir)
	}

	if err := verifyLayout(tool); err != nil {
		return Tool{}, err
	}
	return tool, nil
}

// copyResource streams the bundled archive to a uniquely named file under dir.
func (p *Provisioner) copyResource(bundle fs.FS, resourceName, dir string) (string, error) {
	if bundle == nil {
		return "", fmt.Errorf("%w: no bundle configured (searched for %s)", failure.ErrResourceNotFound, resourceName)
	}

	in, err := bundle.Open(resourceName)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: failed to find tool archive in bundle (searched for name: %s)", failure.ErrResourceNotFound, resourceName)
	}
	if err != nil {
		return "", failure.IO("open bundled archive", err)
	}
	defer in.Close()

	// Keep the archive extension so the extractor can pick the format.
	_, ext := compression.SplitExt(resourceName)
	tmpPath := filepath.Join(dir, "remover-"+uuid.NewString()+ext)

	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) // #nosec G304 - name generated here
	if err != nil {
		return "", failure.IO("create temporary archive", err)
	}

	n, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		return "", failure.IO("copy bundled archive", errors.Join(copyErr, closeErr))
	}

	p.logger.Debug("copied bundled archive", "resource", resourceName, "temp", tmpPath, "size", humanize.Bytes(uint64(n))) // #nosec G115

	return tmpPath, nil
}

func verifyLayout(tool Tool) error {
	for _, path := range []string{tool.EntryScript(), tool.Requirements()} {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: missing %s at bundle root", failure.ErrInvalidBundle, filepath.Base(path))
		}
	}
	return nil
}
