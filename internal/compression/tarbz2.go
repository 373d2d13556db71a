package compression

import (
	"compress/bzip2"
	"io"
)

// extractTarBz2 extracts a tar.bz2 archive.
func (x *extractor) extractTarBz2(r io.Reader) error {
	return x.extractTar(bzip2.NewReader(r))
}
