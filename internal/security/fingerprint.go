package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashFingerprint returns a SHA-256 hash of the raw device fingerprint, hex-encoded.
// Sessions store only the hash so the raw fingerprint never reaches the database.
func HashFingerprint(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// FingerprintEqual performs constant-time comparison of a provided raw
// fingerprint with the stored hash. Returns true only if they match.
func FingerprintEqual(providedRaw, storedHash string) bool {
	providedHash := HashFingerprint(providedRaw)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
