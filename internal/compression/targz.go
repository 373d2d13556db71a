package compression

import (
	"compress/gzip"
	"fmt"
	"io"
)

// extractTarGz extracts a tar.gz archive.
func (x *extractor) extractTarGz(r io.Reader) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close()

	return x.extractTar(gzr)
}
