package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// AESCipher is AES-256-GCM keyed from a passphrase. The wire format is
// base64(nonce || sealed).
type AESCipher struct {
	aead cipher.AEAD
}

func NewAESCipher(passphrase string) (*AESCipher, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	return &AESCipher{aead: aead}, nil
}

func (c *AESCipher) Algorithm() string { return "AES-256-GCM" }

func (c *AESCipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return plaintext, nil
}
