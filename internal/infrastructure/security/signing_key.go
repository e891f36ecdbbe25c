package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeySize is the HS256 key length in bytes.
const KeySize = 32

// GenerateKey returns KeySize bytes from crypto/rand.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

// EncodeKey renders key as standard base64.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey parses a base64 key and checks its length.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(key) < KeySize {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}
