// Package vault encrypts column values at rest with AES-256-GCM. Ciphertexts
// are hex strings with the nonce prepended.
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
	ErrKeySize          = errors.New("encryption key must be 32 bytes")
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrDecryptionFailed = errors.New("decryption failed (wrong key or tampered data)")
)

// ParseKey decodes a 64 character hex key.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return key, nil
}

// Encrypt seals plaintext under key and returns the hex ciphertext.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

// Decrypt opens a hex ciphertext produced by Encrypt.
func Decrypt(cipherHex string, key []byte) (string, error) {
	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrCiphertextShort
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Cipher binds a key for repeated column transforms.
type Cipher struct {
	key []byte
}

// NewCipher parses hexKey into a Cipher.
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

func (c *Cipher) Seal(plaintext string) (string, error) { return Encrypt(plaintext, c.key) }
func (c *Cipher) Open(cipherHex string) (string, error) { return Decrypt(cipherHex, c.key) }

// SealOptional encrypts an optional value. Nil and empty values stay NULL.
func (c *Cipher) SealOptional(plaintext *string) (*string, error) {
	if plaintext == nil || *plaintext == "" {
		return nil, nil
	}
	out, err := c.Seal(*plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenOptional decrypts an optional value. NULL stays nil.
func (c *Cipher) OpenOptional(cipherHex *string) (*string, error) {
	if cipherHex == nil {
		return nil, nil
	}
	out, err := c.Open(*cipherHex)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
