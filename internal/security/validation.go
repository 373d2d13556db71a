// Package security provides path containment checks and size-limited readers
// used when unpacking bundles and resolving workspace paths.
package security

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrSizeLimit is returned by LimitedReader once its budget is exhausted.
var ErrSizeLimit = errors.New("decompression size limit exceeded")

// ValidateFilePath validates a file path within an archive to prevent directory traversal.
func ValidateFilePath(filePath, baseDir string) error {
	if filePath == "" {
		return fmt.Errorf("empty file path")
	}

	// Archives always use forward slashes; normalise before checking.
	slashed := filepath.ToSlash(filePath)
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return fmt.Errorf("file path contains directory traversal (..) - not allowed: %s", filePath)
		}
	}

	if filepath.IsAbs(filePath) || strings.HasPrefix(slashed, "/") {
		return fmt.Errorf("absolute paths in archives are not allowed: %s", filePath)
	}

	return ensureWithin(filepath.Join(baseDir, filepath.FromSlash(slashed)), baseDir)
}

// ValidateRelativePath checks that rel is a non-absolute path that stays inside root
// once joined. When allowRoot is false the joined path may not be root itself.
func ValidateRelativePath(rel, root string, allowRoot bool) error {
	if strings.TrimSpace(rel) == "" {
		return fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return fmt.Errorf("path must be relative to the workspace: %s", rel)
	}

	joined := filepath.Join(root, rel)
	if err := ensureWithin(joined, root); err != nil {
		return err
	}
	if !allowRoot && filepath.Clean(joined) == filepath.Clean(root) {
		return fmt.Errorf("path resolves to the workspace root: %s", rel)
	}
	return nil
}

// ensureWithin compares absolute forms so a relative base such as "." still
// contains its children.
func ensureWithin(path, baseDir string) error {
	cleanFinal, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", baseDir, err)
	}

	prefix := cleanBase
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(cleanFinal, prefix) && cleanFinal != cleanBase {
		return fmt.Errorf("file path would escape base directory")
	}

	return nil
}

// LimitedReader wraps an io.Reader and limits the total bytes that can be read.
// Unlike io.LimitedReader it fails loudly instead of reporting EOF, so a
// truncated extraction is never mistaken for a complete one.
type LimitedReader struct {
	R         io.Reader
	Remaining int64
}

// Read implements io.Reader with size limits.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Remaining <= 0 {
		// Budget spent: only fail if the source actually has more to give.
		var probe [1]byte
		n, err := l.R.Read(probe[:])
		if n > 0 {
			return 0, ErrSizeLimit
		}
		return 0, err
	}
	if int64(len(p)) > l.Remaining {
		p = p[:l.Remaining]
	}
	n, err := l.R.Read(p)
	l.Remaining -= int64(n)
	return n, err
}

// NewLimitedReader creates a new LimitedReader with the specified size limit.
func NewLimitedReader(r io.Reader, maxBytes int64) *LimitedReader {
	return &LimitedReader{
		R:         r,
		Remaining: maxBytes,
	}
}
