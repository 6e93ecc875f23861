// Package cryptox implements the content envelope used for files: every
// file is sealed under its own random AES-256-GCM key, and the wire form is
// nonce || ciphertext || tag.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
)

const (
	// KeySize is the content key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// ContentKey is a symmetric key that encrypts exactly one file.
type ContentKey [KeySize]byte

// GenerateContentKey returns a fresh random key.
func GenerateContentKey() ContentKey {
	var k ContentKey
	copy(k[:], common.GenerateRandByteArray(KeySize))
	return k
}

// Bytes exports the raw key material.
func (k ContentKey) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k[:])
	return b
}

// Wipe zeroes the key in place.
func (k *ContentKey) Wipe() {
	common.WipeByteArray(k[:])
}

// ImportContentKey builds a key from raw bytes. Only 32-byte input is accepted.
func ImportContentKey(raw []byte) (ContentKey, error) {
	var k ContentKey
	if len(raw) != KeySize {
		return k, fmt.Errorf("%w: got %d bytes", common.ErrInvalidKey, len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

func newGCM(key ContentKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a fresh random nonce. The returned
// ciphertext carries the authentication tag at its end. Empty plaintext is
// valid and yields a tag-only ciphertext.
func Encrypt(plaintext []byte, key ContentKey) (nonce, ciphertext []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(NonceSize)
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return nonce, ciphertext, nil
}

// Decrypt opens ciphertext produced by Encrypt. Any tampering with nonce,
// ciphertext or tag, or a wrong key, yields common.ErrIntegrity and no
// plaintext.
func Decrypt(nonce, ciphertext []byte, key ContentKey) ([]byte, error) {
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, common.ErrIntegrity
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrIntegrity
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// Seal encrypts plaintext and returns the wire envelope nonce || ciphertext.
func Seal(plaintext []byte, key ContentKey) ([]byte, error) {
	nonce, ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(ciphertext))
	out = append(out, nonce...)
	return append(out, ciphertext...), nil
}

// SplitEnvelope separates the nonce prefix from the ciphertext.
func SplitEnvelope(envelope []byte) (nonce, ciphertext []byte, err error) {
	if len(envelope) < NonceSize+TagSize {
		return nil, nil, common.ErrIntegrity
	}
	return envelope[:NonceSize], envelope[NonceSize:], nil
}

// Open reverses Seal.
func Open(envelope []byte, key ContentKey) ([]byte, error) {
	nonce, ciphertext, err := SplitEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	return Decrypt(nonce, ciphertext, key)
}
