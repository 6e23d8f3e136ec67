package stash

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// Sealer is the encryption primitive backing the stash. It is an external
// collaborator: the stash only requires that Open inverts Seal and fails on
// a wrong key or tampered ciphertext.
type Sealer interface {
	Seal(plaintext, key []byte) ([]byte, error)
	Open(ciphertext, key []byte) ([]byte, error)
}

var (
	errCorrupt  = errors.New("stash file is not valid ciphertext")
	errWrongKey = errors.New("stash key does not open this file")
)

const accessKeySize = 32

// NewSealer returns the default AES-256-GCM sealer. The file format is
// url-safe base64 over nonce || ciphertext.
func NewSealer() Sealer {
	return gcmSealer{}
}

// NewAccessKey generates a fresh random stash access key.
func NewAccessKey() ([]byte, error) {
	key := make([]byte, accessKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate access key: %w", err)
	}
	return key, nil
}

// EncodeKey renders an access key as the textual form carried in session
// state.
func EncodeKey(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

// DecodeKey parses the textual access-key form.
func DecodeKey(text string) ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode access key: %w", err)
	}
	if len(key) != accessKeySize {
		return nil, fmt.Errorf("access key has %d bytes, want %d", len(key), accessKeySize)
	}
	return key, nil
}

type gcmSealer struct{}

func (gcmSealer) Seal(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	encoded := make([]byte, base64.URLEncoding.EncodedLen(len(sealed)))
	base64.URLEncoding.Encode(encoded, sealed)
	return encoded, nil
}

func (gcmSealer) Open(ciphertext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	decoded := make([]byte, base64.URLEncoding.DecodedLen(len(ciphertext)))
	n, err := base64.URLEncoding.Decode(decoded, ciphertext)
	if err != nil {
		return nil, errCorrupt
	}
	decoded = decoded[:n]
	if len(decoded) < aead.NonceSize() {
		return nil, errCorrupt
	}
	plaintext, err := aead.Open(nil, decoded[:aead.NonceSize()], decoded[aead.NonceSize():], nil)
	if err != nil {
		return nil, errWrongKey
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != accessKeySize {
		return nil, fmt.Errorf("access key has %d bytes, want %d", len(key), accessKeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
