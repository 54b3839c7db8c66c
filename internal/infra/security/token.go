package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const tokenSaltLength = 16

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewTokenSalt returns a fresh random salt, hex encoded.
func NewTokenSalt() (string, error) {
	buf := make([]byte, tokenSaltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashTokenSecret calculates the salted SHA-256 hash of a token secret.
// Refresh secrets are high-entropy random values, so a salted digest is
// sufficient; the salt keeps identical secrets from producing equal rows.
func HashTokenSecret(salt, secret string) string {
	sum := sha256.Sum256([]byte(salt + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// VerifyTokenSecret compares a presented secret against the stored salted
// hash in constant time.
func VerifyTokenSecret(salt, secret, storedHash string) bool {
	computed := HashTokenSecret(salt, secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// HashAuthorizationCode calculates the lookup hash for an authorization code.
func HashAuthorizationCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// EncodeRefreshToken packs a token reference and its secret into the
// opaque wire form carried by the refreshToken cookie.
func EncodeRefreshToken(id, secret string) string {
	return id + "." + secret
}

// DecodeRefreshToken splits the wire form back into reference and secret.
func DecodeRefreshToken(raw string) (id, secret string, err error) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed refresh token")
	}
	return parts[0], parts[1], nil
}
