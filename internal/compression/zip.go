package compression

import (
	"archive/zip"
	"fmt"
	"io"
)

// extractZip extracts every entry of a zip archive.
func (x *extractor) extractZip(r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, f := range zr.File {
		info := f.FileInfo()

		switch {
		case info.IsDir():
			if err := x.mkdir(f.Name); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("failed to open file in archive: %w", err)
			}
			err = x.writeFile(f.Name, info.Mode(), rc)
			rc.Close()
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported zip entry %q (mode %s)", f.Name, info.Mode())
		}
	}

	return nil
}
