package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Cipher encrypts token secrets at rest.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(encoded string) (string, error)
}

var keySizes = map[string]int{
	"aes-128-gcm": 16,
	"aes-192-gcm": 24,
	"aes-256-gcm": 32,
}

const hkdfInfo = "gatekeep token secret"

// AESGCM seals with a random 12-byte nonce and encodes hex(nonce||sealed).
type AESGCM struct {
	aead cipher.AEAD
}

var _ Cipher = (*AESGCM)(nil)

// NewAESGCM derives an AES key of the size named by algorithm from the
// configured cipher key using HKDF-SHA256.
func NewAESGCM(algorithm, cipherKey string) (*AESGCM, error) {
	size, ok := keySizes[algorithm]
	if !ok {
		return nil, ErrRegistry.New(CodeUnsupportedAlgorithm).WithDetail("algorithm", algorithm)
	}
	if cipherKey == "" {
		return nil, ErrRegistry.New(CodeInvalidKey)
	}

	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(cipherKey), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeEncryptFailed, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeEncryptFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeEncryptFailed, err)
	}
	return &AESGCM{aead: aead}, nil
}

func (c *AESGCM) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", ErrRegistry.NewWithCause(CodeEncryptFailed, err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return hex.EncodeToString(sealed), nil
}

func (c *AESGCM) Decrypt(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeDecryptFailed, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrRegistry.NewWithMessage(CodeDecryptFailed, "ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeDecryptFailed, err)
	}
	return string(plain), nil
}
