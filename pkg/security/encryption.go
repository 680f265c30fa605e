package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

// Sealer encrypts payment details (card numbers, UPI IDs) for storage in a
// text column. The output is base64 of nonce followed by the AES-GCM ciphertext.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

func NewSealer(key []byte) (Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEncryption
	}

	return &aesSealer{gcm: gcm}, nil
}

type aesSealer struct {
	gcm cipher.AEAD
}

func (a *aesSealer) Seal(plain string) (string, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryption
	}

	sealed := a.gcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (a *aesSealer) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrDecryption
	}

	nonceSize := a.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrDecryption
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := a.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}

// MaskCard keeps the last four digits of a card number.
func MaskCard(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// MaskUPI hides the handle of a UPI ID but keeps the provider.
func MaskUPI(id string) string {
	handle, provider, ok := strings.Cut(strings.TrimSpace(id), "@")
	if !ok || handle == "" {
		return "****"
	}
	return handle[:1] + "****@" + provider
}
