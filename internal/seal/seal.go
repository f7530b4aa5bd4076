// Package seal obfuscates short strings that the portal keeps in session
// storage (the user type and the cached profile summary).  The key is derived
// from a pre-shared secret, so anyone holding the secret can read the values:
// this keeps casual readers of the session store out, nothing more.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	nonceSize  = 24
	keySize    = 32
	iterations = 4096
)

// kdfSalt is fixed so that every process configured with the same secret
// derives the same key.
var kdfSalt = []byte("clinic-portal/session-seal")

// ErrMalformed is returned when a ciphertext is not valid base64 or is too
// short to contain a nonce and an authenticator.
var ErrMalformed = errors.New("seal: malformed ciphertext")

// ErrMismatch is returned when a ciphertext fails authentication, i.e. it
// was tampered with or sealed under another secret.
var ErrMismatch = errors.New("seal: ciphertext does not match key")

// Codec seals and opens strings with a key derived from a secret.
type Codec struct {
	key  [keySize]byte
	rand io.Reader
}

// New derives the sealing key from secret.  An empty secret is rejected.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("seal: empty secret")
	}
	c := &Codec{rand: rand.Reader}
	copy(c.key[:], pbkdf2.Key([]byte(secret), kdfSalt, iterations, keySize, sha256.New))
	return c, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns it as
// URL-safe base64 (nonce || box).
func (c *Codec) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("seal: read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrMismatch
	}
	return string(plain), nil
}
