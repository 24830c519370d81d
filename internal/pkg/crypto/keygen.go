// Package crypto provides token and hashing utilities for timebucket.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// SessionTokenBytes is the entropy of an issued session token.
const SessionTokenBytes = 32

// Token errors
var (
	// ErrMalformedToken indicates a presented token is not a valid encoding.
	ErrMalformedToken = errors.New("malformed session token")
)

// GenerateSessionToken returns a random URL-safe token suitable for a cookie
// or Authorization header. Only its hash is ever persisted.
func GenerateSessionToken() (string, error) {
	raw := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ParseSessionToken normalizes a presented token and rejects values that
// could not have been produced by GenerateSessionToken.
func ParseSessionToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != SessionTokenBytes {
		return "", ErrMalformedToken
	}

	return token, nil
}
