package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateToken produces a raw opaque session token (256 bits of entropy) and
// its digest. Only the digest is ever stored; the raw value goes to the client.
func GenerateToken() (raw, digest string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, DigestToken(raw), nil
}

// DigestToken computes the deterministic one-way digest used to look up a
// presented token. Stored and presented values are only ever compared in
// digest form.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
