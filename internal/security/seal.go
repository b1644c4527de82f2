package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealPrefix = "v1."
	sealInfo   = "inventory-client token store v1"
)

// ErrSealed is returned when a sealed value is truncated, tampered with, or sealed under another key.
var ErrSealed = errors.New("sealed value cannot be opened")

// Sealer encrypts values at rest with XChaCha20-Poly1305 under a key derived from a secret.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 256-bit key from secret via HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("seal: secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns "v1." + base64url(nonce || ciphertext).
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	blob := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealPrefix + base64.RawURLEncoding.EncodeToString(blob), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealPrefix) {
		return "", ErrSealed
	}
	blob, err := base64.RawURLEncoding.DecodeString(sealed[len(sealPrefix):])
	if err != nil {
		return "", ErrSealed
	}
	ns := s.aead.NonceSize()
	if len(blob) < ns {
		return "", ErrSealed
	}
	plain, err := s.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return "", ErrSealed
	}
	return string(plain), nil
}
