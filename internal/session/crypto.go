package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize    = 32 // AES-256
	iterations = 100000
)

// keySalt is fixed so every replica derives the same key from the same secret
var keySalt = []byte("snooptrade/session-token/v1")

// Sealer encrypts bearer tokens before they reach a shared store
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives an AES-256-GCM key from passphrase
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("sealer passphrase must not be empty")
	}

	key := pbkdf2.Key([]byte(passphrase), keySalt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal encrypts plaintext and returns it base64 encoded
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(ciphertext), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed string) (string, error) {
	data, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.New("sealed token is not valid base64")
	}
	if len(data) < s.gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce := data[:s.gcm.NonceSize()]
	plaintext, err := s.gcm.Open(nil, nonce, data[s.gcm.NonceSize():], nil)
	if err != nil {
		return "", errors.New("decryption failed: invalid secret or corrupted data")
	}
	return string(plaintext), nil
}
