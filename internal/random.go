package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// TokenSecretSize is the raw entropy behind every opaque bearer token.
// 32 bytes gives the 256-bit guessing margin the token contract requires.
const TokenSecretSize = 32

// TokenSecret is the raw random material of a session or key-fetch token.
type TokenSecret [TokenSecretSize]byte

// NewTokenSecret draws fresh token material from crypto/rand.
func NewTokenSecret() (TokenSecret, error) {
	var s TokenSecret
	_, err := rand.Read(s[:])
	return s, err
}

// Token renders the secret as the opaque wire token (lowercase hex).
func (s TokenSecret) Token() string {
	return hex.EncodeToString(s[:])
}

// ParseToken decodes a wire token back into its raw material.
func ParseToken(token string) (TokenSecret, error) {
	var s TokenSecret

	raw, err := hex.DecodeString(token)
	if err != nil {
		return s, err
	}
	if len(raw) != TokenSecretSize {
		return s, errors.New("invalid token size")
	}

	copy(s[:], raw)
	return s, nil
}

// Digest returns the storage key for a secret. Stores never hold raw
// token material, only its SHA-256.
func (s TokenSecret) Digest() string {
	sum := sha256.Sum256(s[:])
	return hex.EncodeToString(sum[:])
}

// TokenDigest maps a wire token to its storage key.
func TokenDigest(token string) (string, error) {
	s, err := ParseToken(token)
	if err != nil {
		return "", err
	}
	return s.Digest(), nil
}
