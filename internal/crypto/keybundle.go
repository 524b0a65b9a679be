// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto implements the record envelope cryptography of the sync
// storage protocol: AES-256-CBC encryption with an HMAC-SHA256 integrity tag
// computed over the base64-encoded ciphertext, plus derivation and management
// of per-collection key bundles.
//
// Nothing in this package touches the network; the decision of when to fetch
// or invalidate key material belongs to the session layer.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/MKhiriev/go-sync-engine/models"
)

var (
	// ErrHMACMismatch means the envelope's integrity tag did not verify.
	// This is never a transient condition: either the key material rotated
	// elsewhere or the record is corrupt.
	ErrHMACMismatch = errors.New("hmac verification failed")
	// ErrMalformedEnvelope means the envelope could not be decoded at all
	// (bad base64, short ciphertext, broken padding).
	ErrMalformedEnvelope = errors.New("malformed crypto envelope")
)

// KeyBundle is a pair of 32-byte keys: one for AES-256-CBC encryption and
// one for the HMAC-SHA256 integrity tag. A bundle is immutable once built.
type KeyBundle struct {
	encKey []byte
	macKey []byte
}

// NewKeyBundle constructs a bundle from already-decoded keys. Both must be
// exactly 32 bytes.
func NewKeyBundle(enc, mac []byte) (KeyBundle, error) {
	if len(enc) != 32 {
		return KeyBundle{}, fmt.Errorf("bad enc key length %d, want 32", len(enc))
	}
	if len(mac) != 32 {
		return KeyBundle{}, fmt.Errorf("bad hmac key length %d, want 32", len(mac))
	}
	return KeyBundle{encKey: enc, macKey: mac}, nil
}

// NewKeyBundleFromB64 decodes the standard-base64 key pair used inside the
// crypto/keys payload.
func NewKeyBundleFromB64(enc, mac string) (KeyBundle, error) {
	encBytes, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return KeyBundle{}, fmt.Errorf("decode enc key: %w", err)
	}
	macBytes, err := base64.StdEncoding.DecodeString(mac)
	if err != nil {
		return KeyBundle{}, fmt.Errorf("decode hmac key: %w", err)
	}
	return NewKeyBundle(encBytes, macBytes)
}

// NewRandomBundle generates a fresh bundle from the OS CSPRNG. Used when a
// fresh crypto/keys record has to be created on a first sync.
func NewRandomBundle() (KeyBundle, error) {
	buf := make([]byte, 64)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return KeyBundle{}, err
	}
	return KeyBundle{encKey: buf[:32], macKey: buf[32:]}, nil
}

// DeriveRootBundle expands the caller-supplied opaque master secret into the
// root key bundle that wraps crypto/keys, using HKDF-SHA256 with fixed
// domain-separation labels. The secret itself is never used as a key
// directly.
func DeriveRootBundle(masterSecret []byte) (KeyBundle, error) {
	if len(masterSecret) == 0 {
		return KeyBundle{}, errors.New("empty master secret")
	}

	enc := make([]byte, 32)
	r := hkdf.New(sha256.New, masterSecret, nil, []byte("sync-engine/v1/enc"))
	if _, err := io.ReadFull(r, enc); err != nil {
		return KeyBundle{}, err
	}

	mac := make([]byte, 32)
	r = hkdf.New(sha256.New, masterSecret, nil, []byte("sync-engine/v1/hmac"))
	if _, err := io.ReadFull(r, mac); err != nil {
		return KeyBundle{}, err
	}

	return KeyBundle{encKey: enc, macKey: mac}, nil
}

// EncryptionKey returns the AES key. The slice must not be mutated.
func (k KeyBundle) EncryptionKey() []byte { return k.encKey }

// HMACKey returns the HMAC key. The slice must not be mutated.
func (k KeyBundle) HMACKey() []byte { return k.macKey }

// IsZero reports whether the bundle holds no key material.
func (k KeyBundle) IsZero() bool { return len(k.encKey) == 0 }

// ToB64Pair returns the [enc, hmac] standard-base64 pair in the layout the
// crypto/keys payload uses.
func (k KeyBundle) ToB64Pair() [2]string {
	return [2]string{
		base64.StdEncoding.EncodeToString(k.encKey),
		base64.StdEncoding.EncodeToString(k.macKey),
	}
}

// hmacTag computes HMAC-SHA256 over the base64 ciphertext string.
// The tag covers the encoded form, not the raw bytes: that is what every
// other client of the protocol verifies against.
func (k KeyBundle) hmacTag(ciphertextB64 string) []byte {
	h := hmac.New(sha256.New, k.macKey)
	h.Write([]byte(ciphertextB64))
	return h.Sum(nil)
}

// HMACString returns the lowercase-hex integrity tag for the given base64
// ciphertext. Never compare against it directly; use VerifyHMAC.
func (k KeyBundle) HMACString(ciphertextB64 string) string {
	return hex.EncodeToString(k.hmacTag(ciphertextB64))
}

// VerifyHMAC checks the envelope's hex tag against the base64 ciphertext in
// constant time. A malformed tag counts as a verification failure, not an
// error, matching what other clients of the protocol do.
func (k KeyBundle) VerifyHMAC(expectedHex, ciphertextB64 string) bool {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) != sha256.Size {
		return false
	}
	return hmac.Equal(expected, k.hmacTag(ciphertextB64))
}

// Encrypt seals cleartext into an envelope with a freshly generated IV.
func (k KeyBundle) Encrypt(cleartext []byte) (models.EncryptedEnvelope, error) {
	block, err := aes.NewCipher(k.encKey)
	if err != nil {
		return models.EncryptedEnvelope{}, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return models.EncryptedEnvelope{}, err
	}

	padded := pkcs7Pad(cleartext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	ciphertextB64 := base64.StdEncoding.EncodeToString(ciphertext)
	return models.EncryptedEnvelope{
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: ciphertextB64,
		HMAC:       k.HMACString(ciphertextB64),
	}, nil
}

// Decrypt verifies the envelope's HMAC and decrypts it. The HMAC is checked
// before any ciphertext byte is touched; a mismatch returns ErrHMACMismatch.
func (k KeyBundle) Decrypt(env models.EncryptedEnvelope) ([]byte, error) {
	if !k.VerifyHMAC(env.HMAC, env.Ciphertext) {
		return nil, ErrHMACMismatch
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: bad iv", ErrMalformedEnvelope)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrMalformedEnvelope)
	}

	block, err := aes.NewCipher(k.encKey)
	if err != nil {
		return nil, err
	}

	cleartext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(cleartext, ciphertext)

	unpadded, err := pkcs7Unpad(cleartext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return unpadded, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padLen], nil
}
