package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// Fingerprint returns the hex-encoded SHA-256 of content. Any byte change
// produces a different fingerprint; mtimes are never consulted.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileFingerprint fingerprints a file on disk.
func FileFingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return Fingerprint(data), nil
}

// Combine folds an ordered list of fingerprints into one. Used to roll a
// fragment's own content hash together with the hashes of the assets it
// references, so an asset edit invalidates the fragment.
func Combine(fingerprints ...string) string {
	h := sha256.New()
	for _, fp := range fingerprints {
		h.Write([]byte(fp))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
