// Package vault provides encrypted-at-rest storage for the wallet seed
// phrase, keyed by a PIN-derived symmetric key. The same envelope primitive
// is reused by the contacts store.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const (
	// KDFIterations is the PBKDF2 iteration count for PIN key derivation.
	KDFIterations = 100_000

	// SaltLength is the random salt size in bytes.
	SaltLength = 16

	// keyLength is the AES-256 key size in bytes.
	keyLength = 32

	// ivLength is the GCM nonce size in bytes (96 bits).
	ivLength = 12
)

// DeriveKey derives a 256-bit AES key from a PIN and salt using
// PBKDF2-SHA256. The returned key must be zeroed by the caller after use.
func DeriveKey(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, KDFIterations, keyLength, sha256.New)
}

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext with AES-256-GCM under key, returning the
// ciphertext (with appended auth tag) and the random IV used.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}

	iv = make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generating IV: %w", err)
	}

	ciphertext = gcm.Seal(nil, iv, plaintext, nil)
	return ciphertext, iv, nil
}

// Decrypt opens an AES-256-GCM envelope. A wrong key or tampered
// ciphertext fails tag verification and surfaces as ErrAuthentication;
// partial plaintext is never returned.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	if len(iv) != gcm.NonceSize() {
		return nil, walleterr.ErrAuthentication
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrAuthentication, "opening seal")
	}

	return plaintext, nil
}

// ZeroBytes zeros a byte slice holding sensitive material.
// runtime.KeepAlive prevents the compiler from eliding the zeroing
// as a dead store when the slice is not used afterward.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
