// Package cryptox wraps the primitives Orbit uses to protect session data
// at rest: an argon2id key derivation and AES-GCM sealing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/orbit/internal/common"
	"golang.org/x/crypto/argon2"
)

// KeySize is the length of keys produced by DeriveKey (AES-256).
const KeySize = 32

// SaltSize is the recommended salt length for DeriveKey.
const SaltSize = 16

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey stretches secret with salt into a KeySize-byte key using argon2id.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key. A fresh random nonce is
// generated and prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	out := make([]byte, 0, len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. It fails if key is wrong or data was tampered with.
func Open(sealed, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(sealed) < ns {
		return nil, ErrCiphertextTooShort
	}

	return aesgcm.Open(nil, sealed[:ns], sealed[ns:], nil)
}
