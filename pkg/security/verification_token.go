// Package security contains the confirmation token codec. Raw tokens only
// ever leave the process inside a confirmation link, the database keeps
// their SHA-256 digest.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	tokenSize = 32

	// DefaultTokenValidity is how long a confirmation link stays usable
	DefaultTokenValidity = time.Hour * 24 * 7
)

var ErrInvalidValidity = errors.New("token validity must be bigger than 0")

// TokenPair holds a freshly generated confirmation token. Token goes into
// the email, Hash goes into the database.
type TokenPair struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// GenerateConfirmationToken draws 256 bits of randomness and returns the
// URL-safe raw token along with its hash and expiry.
func GenerateConfirmationToken(validity time.Duration) (*TokenPair, error) {
	if validity <= 0 {
		return nil, ErrInvalidValidity
	}

	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes, %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(b)

	return &TokenPair{
		Token:     token,
		Hash:      HashToken(token),
		ExpiresAt: time.Now().Add(validity),
	}, nil
}

// HashToken returns the hex encoded SHA-256 digest of a raw token. It is a
// lookup key, not a MAC, so no secret is mixed in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsTokenExpired reports whether now is past expiresAt. A token expiring
// exactly at now is still valid.
func IsTokenExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
