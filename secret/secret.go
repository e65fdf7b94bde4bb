// Package secret seals configuration secrets with AES-256-GCM so tokens and
// passwords can sit in config.yaml as "enc:<base64>" values.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prefix marks a sealed value.
const Prefix = "enc:"

var (
	// ErrNoKey is returned when a sealed value is found but no key is set.
	ErrNoKey = errors.New("sealed value but no encryption key configured")
	// ErrTampered covers any authentication failure on Open.
	ErrTampered = errors.New("decryption failed: authentication or integrity check failed")
)

// Box seals and opens values with one 256-bit key.
type Box struct {
	aead cipher.AEAD
}

// NewBox builds a Box from a base64-encoded 32-byte key, as printed by
// `openssl rand -base64 32`.
func NewBox(base64Key string) (*Box, error) {
	if base64Key == "" {
		return nil, errors.New("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext into "enc:" + base64(nonce || ciphertext || tag).
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("plaintext is empty")
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. The prefix is optional.
func (b *Box) Open(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	n := b.aead.NonceSize()
	if len(raw) < n+b.aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(raw))
	}
	plain, err := b.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrTampered
	}
	return string(plain), nil
}

// IsSealed reports whether value carries the "enc:" prefix.
func IsSealed(value string) bool { return strings.HasPrefix(value, Prefix) }

// Reveal opens every sealed value among fields in place. Plain values are
// left alone. b may be nil when nothing is sealed.
func Reveal(b *Box, fields ...*string) error {
	for _, f := range fields {
		if !IsSealed(*f) {
			continue
		}
		if b == nil {
			return ErrNoKey
		}
		plain, err := b.Open(*f)
		if err != nil {
			return err
		}
		*f = plain
	}
	return nil
}
