// Package token provides opaque token generation and hashing for
// refresh sessions.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateRandomToken returns size bytes of randomness, URL-safe encoded.
func GenerateRandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256 hashes a token for at-rest storage. Only the hash is
// persisted; the raw token never touches the database.
func HashSHA256(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
