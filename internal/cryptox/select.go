package cryptox

import "strings"

// NewPayloadCipher picks the algorithm from the key material: RSA when any
// RSA key is configured, AES when only a passphrase is, nil when nothing is.
// With a public key but no private key, responses are decrypted with the
// passphrase when one is set.
// A single client keeps one cipher for its lifetime; switching keys between
// requests is not supported.
func NewPayloadCipher(publicPEM, privatePEM, passphrase string) (Cipher, error) {
	if strings.TrimSpace(publicPEM) != "" || strings.TrimSpace(privatePEM) != "" {
		c, err := NewRSACipher(publicPEM, privatePEM)
		if err != nil {
			return nil, err
		}
		if c.CanDecrypt() || passphrase == "" {
			return c, nil
		}
		aes, err := NewAESCipher(passphrase)
		if err != nil {
			return nil, err
		}
		return &splitCipher{enc: c, dec: aes}, nil
	}
	if passphrase != "" {
		c, err := NewAESCipher(passphrase)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, nil
}

// splitCipher encrypts with one cipher and decrypts with another.
type splitCipher struct {
	enc Cipher
	dec Cipher
}

func (c *splitCipher) Encrypt(plaintext []byte) (string, error) { return c.enc.Encrypt(plaintext) }

func (c *splitCipher) Decrypt(ciphertext string) ([]byte, error) { return c.dec.Decrypt(ciphertext) }

func (c *splitCipher) Algorithm() string { return c.enc.Algorithm() + "/" + c.dec.Algorithm() }
