package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ternarybob/arbor"
)

// Service encrypts and decrypts individual credential fields with
// AES-256-GCM. Every field is obfuscated independently so a single
// corrupted field only invalidates its own record.
//
// Wire format: base64(nonce || ciphertext).
type Service struct {
	aead   cipher.AEAD
	logger arbor.ILogger
}

// NewService creates a secrets service from a hex-encoded 32-byte key.
func NewService(hexKey string, logger arbor.ILogger) (*Service, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("credentials key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Service{aead: aead, logger: logger}, nil
}

// Encrypt obfuscates a single field value.
func (s *Service) Encrypt(plain string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers a single field value. An empty result is possible and
// callers must treat it as unusable.
func (s *Service) Decrypt(enc string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("failed to decode field: %w", err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", fmt.Errorf("encrypted field too short")
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field: %w", err)
	}
	return string(plain), nil
}
