package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealedPrefix marks a value written by Box.Seal.
const SealedPrefix = "enc:v1:"

// ErrEncryptionFailed is returned when sealing or opening fails.
var ErrEncryptionFailed = errors.New("encryption failed")

// Box seals and opens short secrets with XChaCha20-Poly1305.
type Box struct {
	aead cipher.AEAD
}

// NewBox creates a Box from a 32-byte key.
func NewBox(key []byte) (*Box, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	return &Box{aead: aead}, nil
}

// NewBoxFromProvider fetches the key from p and creates a Box.
func NewBoxFromProvider(p KeyProvider) (*Box, error) {
	key, err := p.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting key from %s: %w", p.Description(), err)
	}
	return NewBox(key)
}

// Seal encrypts plaintext under a random nonce and returns
// SealedPrefix + base64(nonce || ciphertext).
func (b *Box) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plaintext)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(value string) (string, error) {
	if !IsSealed(value) {
		return "", fmt.Errorf("%w: value is not sealed", ErrEncryptionFailed)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}

	nonceSize := b.aead.NonceSize()
	if len(data) < nonceSize+b.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}
	plaintext, err := b.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: wrong key or corrupted value", ErrEncryptionFailed)
	}
	return string(plaintext), nil
}

// IsSealed reports whether value carries SealedPrefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}
