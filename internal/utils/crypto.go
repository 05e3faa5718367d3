// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashReader streams r through SHA-256 and returns the hex digest with the
// number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	hasher := sha256.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}
