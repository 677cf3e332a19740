// Package phi provides field-level authenticated encryption for Protected
// Health Information. Values are stored as "hex(nonce):hex(tag):hex(ciphertext)"
// in whatever column already holds the attribute; there is no separate
// encryption metadata table.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceLen = 12 // 96 bits, GCM standard
	tagLen   = 16 // 128 bits

	// contextAAD binds ciphertexts to this data context so values encrypted
	// elsewhere under the same key cannot be replayed into health records.
	contextAAD = "health-data-v1"
)

// DecryptionError reports a value that could not be decrypted. Kind
// distinguishes malformed encodings from failed integrity checks so callers
// can tell corruption apart from tampering or key mismatch.
type DecryptionError struct {
	Kind   DecryptionErrorKind
	Reason string
}

type DecryptionErrorKind int

const (
	// ErrKindMalformed: the stored string is not a valid nonce:tag:ciphertext triple.
	ErrKindMalformed DecryptionErrorKind = iota
	// ErrKindIntegrity: the authentication tag did not verify (wrong key,
	// corrupted or tampered ciphertext).
	ErrKindIntegrity
)

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("phi: decryption failed: %s", e.Reason)
}

// IsIntegrityFailure reports whether err is a DecryptionError caused by an
// authentication tag mismatch.
func IsIntegrityFailure(err error) bool {
	var de *DecryptionError
	return errors.As(err, &de) && de.Kind == ErrKindIntegrity
}

// KeySource supplies the field encryption key. *keys.Provider satisfies it.
type KeySource interface {
	FieldKey() ([]byte, error)
}

// Cipher encrypts and decrypts individual string fields with AES-256-GCM.
// Every call draws a fresh random nonce; there is no shared mutable state, so
// a single Cipher is safe for concurrent use across request handlers.
type Cipher struct {
	keys KeySource
}

// NewCipher builds a Cipher over the given key source.
func NewCipher(keys KeySource) *Cipher {
	return &Cipher{keys: keys}
}

// Encrypt seals plaintext into the nonce:tag:ciphertext wire format.
// Empty and whitespace-only input passes through as the empty string so
// optional fields round-trip without null handling in callers.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", nil
	}

	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("phi: generate nonce: %w", err)
	}

	// Seal appends the 16-byte tag after the ciphertext; the wire format
	// carries it as its own segment.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), []byte(contextAAD))
	ct, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt. Empty input returns the empty
// string. Any structural defect or tag mismatch yields a DecryptionError;
// partial or garbled plaintext is never returned.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	if strings.TrimSpace(encoded) == "" {
		return "", nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", &DecryptionError{Kind: ErrKindMalformed, Reason: "expected nonce:tag:ciphertext"}
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceLen {
		return "", &DecryptionError{Kind: ErrKindMalformed, Reason: "invalid nonce"}
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLen {
		return "", &DecryptionError{Kind: ErrKindMalformed, Reason: "invalid authentication tag"}
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", &DecryptionError{Kind: ErrKindMalformed, Reason: "invalid ciphertext"}
	}

	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, append(ct, tag...), []byte(contextAAD))
	if err != nil {
		return "", &DecryptionError{Kind: ErrKindIntegrity, Reason: "integrity check failed"}
	}
	return string(plaintext), nil
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	key, err := c.keys.FieldKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi: %w", err)
	}
	return cipher.NewGCM(block)
}

// HashForIndex returns the SHA-256 hex digest of a value, allowing encrypted
// columns to be matched without decryption. Empty input hashes to the empty
// string, mirroring Encrypt's passthrough.
func HashForIndex(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
