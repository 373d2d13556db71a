// Package compression extracts bundled tool archives into a directory tree.
package compression

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/commentstrip/internal/security"
)

// Format identifies a supported archive container.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatTarBz2 Format = "tar.bz2"
)

// DefaultMaxBytes bounds the total decompressed size of one archive.
const DefaultMaxBytes int64 = 256 * 1024 * 1024

// archiveExtensions maps file suffixes to formats. Longer suffixes come first
// so ".tar.gz" wins over a hypothetical ".gz".
var archiveExtensions = []struct {
	ext    string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".zip", FormatZip},
}

// ExtractOptions tunes an extraction.
type ExtractOptions struct {
	// MaxBytes caps the sum of all extracted file sizes. Zero means DefaultMaxBytes.
	MaxBytes int64
}

// ExtractResult contains the result of an extraction operation.
type ExtractResult struct {
	Format Format
	Files  int
	Dirs   int
	Bytes  int64
}

// SplitExt splits an archive file name into its base and archive extension.
// For example: "comments_remover.tar.gz" -> ("comments_remover", ".tar.gz").
// The extension is empty when the name carries no known archive suffix.
func SplitExt(name string) (base, ext string) {
	lower := strings.ToLower(name)
	for _, e := range archiveExtensions {
		if strings.HasSuffix(lower, e.ext) {
			return name[:len(name)-len(e.ext)], name[len(name)-len(e.ext):]
		}
	}
	return name, ""
}

// DetectFormat picks the archive format from a file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	for _, e := range archiveExtensions {
		if strings.HasSuffix(lower, e.ext) {
			return e.format, nil
		}
	}
	return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(name))
}

// ExtractArchive unpacks every entry of the archive at archivePath into destDir,
// preserving the archive's internal tree. destDir is created if needed.
// Entries that would land outside destDir, links and device files are rejected.
func ExtractArchive(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return nil, err
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil { // #nosec G301 - tool directory must be traversable by the interpreter
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	f, err := os.Open(archivePath) // #nosec G304 - archive path controlled by application
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	x := &extractor{
		destDir:   destDir,
		remaining: maxBytes,
		result:    &ExtractResult{Format: format},
	}

	switch format {
	case FormatZip:
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat archive: %w", err)
		}
		err = x.extractZip(f, info.Size())
		if err != nil {
			return nil, err
		}
	case FormatTarGz:
		if err := x.extractTarGz(f); err != nil {
			return nil, err
		}
	case FormatTarXz:
		if err := x.extractTarXz(f); err != nil {
			return nil, err
		}
	case FormatTarBz2:
		if err := x.extractTarBz2(f); err != nil {
			return nil, err
		}
	}

	return x.result, nil
}

// extractor writes archive entries below destDir while tracking the size budget.
type extractor struct {
	destDir   string
	remaining int64
	result    *ExtractResult
}

// target validates an entry name and returns its destination path.
// ok is false for entries that name the archive root itself.
func (x *extractor) target(name string) (path string, ok bool, err error) {
	clean := strings.TrimPrefix(filepath.ToSlash(name), "./")
	clean = strings.TrimSuffix(clean, "/")
	if clean == "" || clean == "." {
		return "", false, nil
	}
	if err := security.ValidateFilePath(clean, x.destDir); err != nil {
		return "", false, fmt.Errorf("unsafe archive entry %q: %w", name, err)
	}
	return filepath.Join(x.destDir, filepath.FromSlash(clean)), true, nil
}

func (x *extractor) mkdir(name string) error {
	path, ok, err := x.target(name)
	if err != nil || !ok {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil { // #nosec G301 - tool directory must be traversable by the interpreter
		return fmt.Errorf("failed to create directory %s: %w", name, err)
	}
	x.result.Dirs++
	return nil
}

func (x *extractor) writeFile(name string, mode fs.FileMode, r io.Reader) error {
	path, ok, err := x.target(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("archive entry %q has no file name", name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { // #nosec G301 - tool directory must be traversable by the interpreter
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	perm := mode.Perm() | 0o600
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) // #nosec G304 - path validated against destDir
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", name, err)
	}

	limited := security.NewLimitedReader(r, x.remaining)
	n, copyErr := io.Copy(out, limited)
	closeErr := out.Close() // Close immediately instead of defer
	x.remaining = limited.Remaining

	if copyErr != nil {
		return fmt.Errorf("failed to extract %s: %w", name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", name, closeErr)
	}

	x.result.Files++
	x.result.Bytes += n
	return nil
}
