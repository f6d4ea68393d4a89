package cryptox

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

// RSACipher is RSA-OAEP with SHA-256. Plaintexts longer than one OAEP block
// are split into blocks and the ciphertext blocks are concatenated, so every
// ciphertext is a multiple of the key size.
//
// Encrypt needs the public key and Decrypt the private key; either may be
// absent when only one direction is used.
type RSACipher struct {
	public  *rsa.PublicKey
	private *rsa.PrivateKey
}

// NewRSACipher parses PEM-encoded keys. Both PKCS#1 and PKIX/PKCS#8 blocks are
// accepted. Literal "\n" sequences, as found in environment variables, are
// turned into newlines first. If only the private key is given, the public
// half is taken from it.
func NewRSACipher(publicPEM, privatePEM string) (*RSACipher, error) {
	c := &RSACipher{}

	if strings.TrimSpace(privatePEM) != "" {
		key, err := ParsePrivateKey(privatePEM)
		if err != nil {
			return nil, err
		}
		c.private = key
		c.public = &key.PublicKey
	}

	if strings.TrimSpace(publicPEM) != "" {
		key, err := ParsePublicKey(publicPEM)
		if err != nil {
			return nil, err
		}
		c.public = key
	}

	if c.public == nil && c.private == nil {
		return nil, ErrMissingKey
	}
	return c, nil
}

func (c *RSACipher) Algorithm() string { return "RSA-OAEP-SHA256" }

// CanDecrypt reports whether a private key is loaded.
func (c *RSACipher) CanDecrypt() bool { return c.private != nil }

func (c *RSACipher) Encrypt(plaintext []byte) (string, error) {
	if c.public == nil {
		return "", fmt.Errorf("rsa encrypt: %w: public key", ErrMissingKey)
	}

	hash := sha256.New()
	limit := c.public.Size() - 2*hash.Size() - 2

	var out bytes.Buffer
	for start := 0; ; start += limit {
		end := min(start+limit, len(plaintext))
		block, err := rsa.EncryptOAEP(hash, rand.Reader, c.public, plaintext[start:end], nil)
		if err != nil {
			return "", fmt.Errorf("rsa encrypt: %w", err)
		}
		out.Write(block)
		if end == len(plaintext) {
			break
		}
	}
	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

func (c *RSACipher) Decrypt(ciphertext string) ([]byte, error) {
	if c.private == nil {
		return nil, fmt.Errorf("rsa decrypt: %w: private key", ErrMissingKey)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	size := c.private.Size()
	if len(raw) == 0 || len(raw)%size != 0 {
		return nil, ErrInvalidCiphertext
	}

	hash := sha256.New()
	var out bytes.Buffer
	for start := 0; start < len(raw); start += size {
		block, err := rsa.DecryptOAEP(hash, nil, c.private, raw[start:start+size], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
		}
		out.Write(block)
	}
	return out.Bytes(), nil
}

func decodePEM(s string) (*pem.Block, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), `\n`, "\n")
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}
	return block, nil
}

func ParsePublicKey(s string) (*rsa.PublicKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}

	if block.Type == "RSA PUBLIC KEY" {
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrInvalidKey)
	}
	return key, nil
}

func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}

	if block.Type == "RSA PRIVATE KEY" {
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", ErrInvalidKey)
	}
	return key, nil
}

// GenerateRSAKeyPair returns a fresh key pair as PKIX public and PKCS#8
// private PEM strings.
func GenerateRSAKeyPair(bits int) (publicPEM, privatePEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", err
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", err
	}

	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	return publicPEM, privatePEM, nil
}
