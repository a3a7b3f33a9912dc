// Package cryptox implements the chunk encryption codec and password
// hashing. Chunks are encrypted with AES-256-CTR under a key derived once
// from the deployment passphrase; the random 16-byte IV is prepended to the
// ciphertext so each chunk is self-contained.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"golang.org/x/crypto/argon2"
)

// IVSize is the length of the initialization vector prepended to every
// encrypted chunk.
const IVSize = 16

// KeySize is the AES-256 key length.
const KeySize = 32

// DeriveKey turns the deployment passphrase into a stable 32-byte AES key.
// The passphrase is hashed with SHA-512, base64-encoded and truncated, so
// the same passphrase always yields the same key across restarts.
func DeriveKey(passphrase string) []byte {
	sum := sha512.Sum512([]byte(passphrase))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	return []byte(encoded[:KeySize])
}

// EncryptChunk encrypts plaintext with AES-256-CTR under key and returns
// iv || ciphertext. A fresh random IV is generated per call, so encrypting
// the same plaintext twice yields different output.
func EncryptChunk(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	out := make([]byte, IVSize+len(plaintext))
	iv := out[:IVSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(out[IVSize:], plaintext)
	return out, nil
}

// DecryptChunk splits the leading IV from blob and decrypts the remainder.
// Returns ErrDecryptionFailed when the blob is too short to contain an IV
// or the key has an invalid length.
func DecryptChunk(key, blob []byte) ([]byte, error) {
	if len(blob) < IVSize {
		return nil, fmt.Errorf("%w: blob shorter than iv (%d bytes)", common.ErrDecryptionFailed, len(blob))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	iv := blob[:IVSize]
	plaintext := make([]byte, len(blob)-IVSize)
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(plaintext, blob[IVSize:])
	return plaintext, nil
}

// HashPassword derives an argon2id hash for the given password with a fresh
// random salt. Both values are stored on the user record.
func HashPassword(password []byte) (hash, salt []byte, err error) {
	salt = make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	return derivePasswordHash(password, salt), salt, nil
}

// VerifyPassword reports whether password matches the stored hash/salt pair.
// Comparison is constant-time.
func VerifyPassword(password, salt, hash []byte) bool {
	candidate := derivePasswordHash(password, salt)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

func derivePasswordHash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}
