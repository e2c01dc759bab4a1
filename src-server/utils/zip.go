package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Bundle split outputs into a single zip archive, for download surfaces
// that would otherwise push a pile of attachments at the user.
func BundleZip(outputFiles []OutputFile) ([]byte, error) {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	for _, outputFile := range outputFiles {
		fileWriter, err := zipWriter.Create(outputFile.Name)
		if err != nil {
			return nil, fmt.Errorf("BundleZip: %w", err)
		}
		if _, err := fileWriter.Write([]byte(outputFile.Content)); err != nil {
			return nil, fmt.Errorf("BundleZip: %w", err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("BundleZip: %w", err)
	}
	return buf.Bytes(), nil
}
