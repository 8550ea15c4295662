// Package token generates unguessable single-use tokens and the fingerprints
// under which they are stored.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// Size128 provides 128 bits of entropy (22 chars base64url).
	Size128 = 16
	// Size256 provides 256 bits of entropy (43 chars base64url).
	Size256 = 32
)

// Generate returns a base64url (no padding) encoded random token of size bytes.
func Generate(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Fingerprint returns the deterministic SHA-256 fingerprint of a token.
// Only fingerprints are persisted; the raw token leaves the process once.
func Fingerprint(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Generator produces tokens for the invitation and password reset flows.
type Generator interface {
	New() (raw string, fingerprint string, err error)
}

type RandomGenerator struct {
	Size int
}

func NewGenerator() *RandomGenerator {
	return &RandomGenerator{Size: Size256}
}

func (g *RandomGenerator) New() (string, string, error) {
	raw, err := Generate(g.Size)
	if err != nil {
		return "", "", err
	}
	return raw, Fingerprint(raw), nil
}
