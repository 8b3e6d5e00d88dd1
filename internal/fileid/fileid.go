// Package fileid derives stable identifiers for files dropped into the inbox.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

const prefix = "sha256:"

// ContentDigest returns a stable identifier for content. Identical bytes always
// yield the same digest regardless of file name or location.
func ContentDigest(content []byte) string {
	hash := sha256.Sum256(content)
	return prefix + hex.EncodeToString(hash[:])
}
