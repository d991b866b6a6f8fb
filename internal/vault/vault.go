// Package vault encrypts provider credential blobs for at-rest storage.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kursadbilgin/crm-engine/internal/domain"
)

const (
	keyLength = 32
	ivLength  = 16
	tagLength = 16
)

var (
	// ErrMalformedBlob means the ciphertext string is not three
	// colon-separated hex segments of the expected shape.
	ErrMalformedBlob = errors.New("malformed encrypted blob")

	// ErrIntegrity means the authentication tag did not verify.
	ErrIntegrity = errors.New("encrypted blob failed integrity check")
)

// Vault performs authenticated symmetric encryption keyed by a
// process-wide secret. Blobs are self-describing strings of the form
// ivHex:tagHex:ciphertextHex.
type Vault struct {
	key []byte
}

// New derives a 256-bit key from the first 32 bytes of secret. A missing
// or undersized secret is a startup-time configuration failure.
func New(secret string) (*Vault, error) {
	if len(secret) < keyLength {
		return nil, fmt.Errorf("encryption key must be at least %d characters", keyLength)
	}
	return &Vault{key: []byte(secret)[:keyLength]}, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random IV.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	), nil
}

// Decrypt opens a blob produced by Encrypt. It fails closed: malformed
// input returns ErrMalformedBlob and a tag mismatch returns ErrIntegrity,
// never corrupted plaintext.
func (v *Vault) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedBlob, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: invalid iv encoding", ErrMalformedBlob)
	}
	if len(iv) != ivLength {
		return "", fmt.Errorf("%w: iv must be %d bytes", ErrMalformedBlob, ivLength)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: invalid tag encoding", ErrMalformedBlob)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", ErrMalformedBlob)
	}

	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	return string(plaintext), nil
}

// EncryptCredentials serializes a credential set to JSON and encrypts it.
func (v *Vault) EncryptCredentials(credentials domain.Credentials) (string, error) {
	raw, err := json.Marshal(credentials)
	if err != nil {
		return "", fmt.Errorf("failed to serialize credentials: %w", err)
	}
	return v.Encrypt(string(raw))
}

// DecryptCredentials decrypts and deserializes a credential blob.
// Decryption failures propagate unchanged.
func (v *Vault) DecryptCredentials(blob string) (domain.Credentials, error) {
	plaintext, err := v.Decrypt(blob)
	if err != nil {
		return nil, err
	}

	var credentials domain.Credentials
	if err := json.Unmarshal([]byte(plaintext), &credentials); err != nil {
		return nil, fmt.Errorf("failed to deserialize credentials: %w", err)
	}
	return credentials, nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return aead, nil
}
