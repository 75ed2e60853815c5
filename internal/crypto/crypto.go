// Package crypto provides the process-wide authenticated encryption
// primitive used to protect stored cloud credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt is returned for any ciphertext that cannot be opened:
// truncated, tampered with, or sealed under a different key. Callers
// treat it the same way as invalid credentials.
var ErrDecrypt = errors.New("crypto: cannot decrypt ciphertext")

// SealedBox encrypts and decrypts short strings with AES-256-GCM.
// Ciphertext at rest is base64(nonce || sealed).
type SealedBox struct {
	aead cipher.AEAD
}

// New creates a SealedBox from a raw 32-byte key.
func New(key []byte) (*SealedBox, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &SealedBox{aead: aead}, nil
}

// NewFromPassphrase derives a 32-byte key from a passphrase with
// HKDF-SHA256 and a fixed application salt, then builds a SealedBox.
func NewFromPassphrase(passphrase string) (*SealedBox, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("crypto: passphrase is empty")
	}
	kdf := hkdf.New(sha256.New, []byte(passphrase), []byte("cloud9-credential-store"), nil)
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return New(key)
}

// EncryptString seals plaintext under a fresh random nonce. Empty
// plaintext encrypts to the empty string so absent credential fields
// stay absent at rest.
func (b *SealedBox) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a ciphertext produced by EncryptString. The empty
// string round-trips to the empty string.
func (b *SealedBox) DecryptString(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(raw) < b.aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, sealed := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plain, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
