package compression

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// extractTarXz extracts a tar.xz archive.
func (x *extractor) extractTarXz(r io.Reader) error {
	xzr, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}

	return x.extractTar(xzr)
}
