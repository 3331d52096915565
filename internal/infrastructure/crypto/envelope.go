package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidEnvelope is returned when a payload cannot be authenticated or
// decoded. The cause is deliberately not detailed to the caller.
var ErrInvalidEnvelope = errors.New("invalid encrypted payload")

// Envelope seals and opens agent payloads with ChaCha20-Poly1305. The wire
// form is base64(nonce || ciphertext); the nonce is generated per message.
type Envelope struct {
	key []byte
}

// NewEnvelope creates an envelope from a base64-encoded 32-byte key
func NewEnvelope(encodedKey string) (*Envelope, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Envelope{key: key}, nil
}

// Seal encrypts plaintext and returns the base64 wire form
func (e *Envelope) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(e.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open authenticates and decrypts a base64 wire-form payload
func (e *Envelope) Open(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidEnvelope
	}
	aead, err := chacha20poly1305.New(e.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrInvalidEnvelope
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidEnvelope
	}
	return plaintext, nil
}

// GenerateKey returns a fresh base64-encoded 32-byte key, for provisioning
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
