package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const resetTokenBytes = 32

// NewResetToken issues a single-use password-reset secret. The plaintext
// goes to the user out-of-band exactly once; only the digest and expiry
// are persisted, so a leaked store never exposes usable tokens.
//
// The digest is a fast hash on purpose: the token is high-entropy,
// random and short-lived, unlike a human-chosen password.
func NewResetToken(ttl time.Duration) (plaintext, hash string, expiresAt time.Time, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate reset token: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashResetToken(plaintext), time.Now().Add(ttl), nil
}

// HashResetToken recomputes the stored digest for a plaintext token so
// the store can be queried by hash equality, never by plaintext.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
