// Package vault provides security primitives: AES-GCM encryption of persisted
// snapshots and TLS certificate generation for the TCP listener.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	// ErrKeySize is returned for keys that are not KeySize bytes long.
	ErrKeySize = errors.New("encryption key must be 32 bytes")
	// ErrCiphertextTooShort is returned when the input cannot hold a nonce.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrDecrypt is returned for a wrong key or tampered data.
	ErrDecrypt = errors.New("decryption failed (wrong key or tampered data)")
)

// ParseKey accepts a 32-byte raw key or its 64-character hex encoding.
func ParseKey(s string) ([]byte, error) {
	if len(s) == 2*KeySize {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}
	if len(s) != KeySize {
		return nil, ErrKeySize
	}
	return []byte(s), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with key and returns nonce||ciphertext as hex.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

// Decrypt reverses Encrypt.
func Decrypt(cipherHex string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	sealed, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return "", ErrCiphertextTooShort
	}
	plain, err := gcm.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
