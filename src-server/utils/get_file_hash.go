package utils

import (
	"crypto/sha256"
	"fmt"
)

// SHA-256 of an uploaded file's content, hex encoded. Used as the
// parse cache key so identical uploads dedupe to one entry.
func GetFileHash(content []byte) string {
	h := sha256.New()
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}
