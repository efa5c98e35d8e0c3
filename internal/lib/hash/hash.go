package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Token returns the SHA-256 digest of a raw token string as lowercase hex.
// Deterministic on purpose: the digest is the ledger lookup key for refresh
// tokens. Not suitable for passwords — those go through bcrypt.
func Token(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
