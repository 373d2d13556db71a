package compression

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
)

// extractTar extracts every entry of an uncompressed tar stream.
func (x *extractor) extractTar(r io.Reader) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar archive: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := x.mkdir(header.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := x.writeFile(header.Name, header.FileInfo().Mode(), tr); err != nil {
				return err
			}
		case tar.TypeXGlobalHeader:
			// PAX global headers carry metadata only.
		default:
			return fmt.Errorf("unsupported tar entry %q (type %q)", header.Name, string(header.Typeflag))
		}
	}
}
