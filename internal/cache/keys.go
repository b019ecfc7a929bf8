package cache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// BlobID derives the blob id for a library item name. Ids are 32 hex
// characters and safe to use as S3 object keys.
func BlobID(name string) string {
	sum := blake2b.Sum256([]byte(name))
	return hex.EncodeToString(sum[:16])
}
