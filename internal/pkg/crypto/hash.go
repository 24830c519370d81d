package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// TokenHasher derives the at-rest form of session tokens.
// The hash is keyed so a leaked sessions table cannot be replayed without the secret.
type TokenHasher struct {
	key []byte
}

// NewTokenHasher creates a hasher keyed by secret.
// blake2b accepts keys of at most 64 bytes; longer secrets are pre-hashed.
func NewTokenHasher(secret string) (*TokenHasher, error) {
	key := []byte(secret)
	if len(key) == 0 {
		return nil, fmt.Errorf("token hasher: empty secret")
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &TokenHasher{key: key}, nil
}

// Hash returns the hex-encoded keyed BLAKE2b-256 of token.
func (h *TokenHasher) Hash(token string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Unreachable: key length is bounded in NewTokenHasher.
		panic(err)
	}
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// ComputeSHA256 computes the hex SHA-256 of a byte slice.
func ComputeSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumSHA256 returns the base64 SHA-256 form S3 expects in x-amz-checksum-sha256.
func ChecksumSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
