// Package cryptox holds the payload ciphers used for per-request encryption
// plus a few hashing and key helpers.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrMissingKey        = errors.New("missing key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidKey        = errors.New("invalid key")
)

// Cipher encrypts request payloads and decrypts response payloads. Ciphertext
// travels as standard base64.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
	Algorithm() string
}

// hkdfInfo binds derived keys to this use so the same passphrase used
// elsewhere produces a different key.
var hkdfInfo = []byte("vormiaquery payload v1")

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns n random bytes encoded as base64, suitable as an AES
// passphrase.
func GenerateKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DeriveKey stretches a passphrase into a 32-byte AES-256 key with
// HKDF-SHA256. The derivation is deterministic so both ends of the wire
// agree on the key.
func DeriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrMissingKey
	}
	r := hkdf.New(sha256.New, []byte(passphrase), nil, hkdfInfo)
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncryptEntry serializes entry to JSON and seals it with AES-GCM.
//
// The key must be 16, 24 or 32 bytes. A fresh 12-byte nonce is generated for
// each call and returned separately from the ciphertext.
func EncryptEntry(entry any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptEntry opens ciphertext produced by EncryptEntry and unmarshals the
// JSON into v.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
