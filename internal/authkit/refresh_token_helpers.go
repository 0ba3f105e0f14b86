package authkit

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"
)

const (
	refreshOpaqueByteLength = 32
	refreshIDSuffixLength   = 6
)

var refreshTokenRandomSource io.Reader = rand.Reader

// NewRefreshTokenID derives a sortable identifier from the issue time plus a random suffix.
func NewRefreshTokenID(now time.Time) (string, error) {
	suffix := make([]byte, refreshIDSuffixLength)
	if _, err := io.ReadFull(refreshTokenRandomSource, suffix); err != nil {
		return "", fmt.Errorf("refresh_store.random: %w", err)
	}
	nowString := now.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(nowString)) + "-" + base64.RawURLEncoding.EncodeToString(suffix), nil
}

// GenerateRefreshOpaque returns a random opaque token and its storage hash.
func GenerateRefreshOpaque() (string, string, error) {
	randomBytes := make([]byte, refreshOpaqueByteLength)
	if _, err := io.ReadFull(refreshTokenRandomSource, randomBytes); err != nil {
		return "", "", fmt.Errorf("refresh_store.random: %w", err)
	}
	opaque := base64.RawURLEncoding.EncodeToString(randomBytes)
	return opaque, HashOpaque(opaque), nil
}

// HashOpaque is the lookup key stored in place of the opaque token.
func HashOpaque(opaque string) string {
	sum := sha256.Sum256([]byte(opaque))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
