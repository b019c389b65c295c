// Package archive serializes merged outputs into the downloadable zip.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"

	"fatturamerge/internal/models"
)

// BuildZip writes one entry per output, in order. Entry names must already be
// unique; the collision resolver guarantees that upstream.
func BuildZip(outputs []models.MergedOutput) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, output := range outputs {
		entry, err := zw.Create(output.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry %s: %w", output.Filename, err)
		}
		if _, err := entry.Write(output.Bytes); err != nil {
			return nil, fmt.Errorf("failed to write zip entry %s: %w", output.Filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}
