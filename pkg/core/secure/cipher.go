// Package secure encrypts sensitive string fields at rest with
// NaCl secretbox. The key is always injected by the caller.
package secure

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// Prefix marks an encrypted value.
const Prefix = "ENC:"

const (
	keySize   = 32
	nonceSize = 24
)

// SensitiveFields are matched as case-insensitive substrings of a field name.
var SensitiveFields = []string{
	"password",
	"api_key",
	"secret",
	"token",
	"bank_account",
	"credit_card",
	"ssn",
	"tax_id",
}

// ErrTampered is returned when a value fails authentication.
var ErrTampered = errors.New("encrypted value failed authentication")

// Cipher seals and opens values with one 32-byte key.
type Cipher struct {
	key [keySize]byte
}

// NewCipher wraps a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	c := &Cipher{}
	copy(c.key[:], key)
	return c, nil
}

// NewCipherFromBase64 decodes a standard base64 key as stored in ENCRYPTION_KEY.
func NewCipherFromBase64(encoded string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	return NewCipher(key)
}

// GenerateKey returns a fresh base64 key for configuration.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt returns "ENC:" + base64(nonce || box).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the prefix are
// returned unchanged.
func (c *Cipher) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, Prefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrTampered
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrTampered
	}
	return string(opened), nil
}

// IsSensitive reports whether a field name matches a sensitive pattern.
func IsSensitive(field string) bool {
	lower := strings.ToLower(field)
	for _, s := range SensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// EncryptFields returns a copy with every sensitive value encrypted. Values
// already carrying the prefix are left alone.
func (c *Cipher) EncryptFields(fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if !IsSensitive(k) || v == "" || strings.HasPrefix(v, Prefix) {
			out[k] = v
			continue
		}
		enc, err := c.Encrypt(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = enc
	}
	return out, nil
}

// DecryptFields returns a copy with every encrypted value opened.
func (c *Cipher) DecryptFields(fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		dec, err := c.Decrypt(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = dec
	}
	return out, nil
}

// Mask hides all but the last four characters of a sensitive value for
// display.
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
