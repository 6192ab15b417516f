package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// FingerprintToken returns a SHA-256 digest of the refresh token, hex-encoded.
// The digest is deterministic so stored records can be found by re-hashing an
// incoming token; the plaintext token is never persisted.
func FingerprintToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// FingerprintEqual performs constant-time comparison of two fingerprints.
// Used when scanning the stored session list for an incoming token's digest.
func FingerprintEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
