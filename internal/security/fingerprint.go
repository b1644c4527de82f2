package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short SHA-256 prefix of token for logs. Empty token yields "".
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:6])
}
