// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crypt seals the inode and directory payloads of an encrypted
// filesystem. A passphrase is stretched into a symmetric key with
// scrypt; the key then drives XChaCha20-Poly1305 to seal and open
// individual block payloads.
package crypt

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"imgfs/lib/secret"
)

// KeySize is the size in bytes of the derived symmetric key.
const KeySize = 32

// DefaultLogN, DefaultR, and DefaultP are the scrypt cost parameters
// imgfs-mkfs uses when its configuration sets no scrypt logN. logN=15 (N=32768) balances interactive unlock latency
// against brute-force cost for a local single-user filesystem.
const (
	DefaultLogN = 15
	DefaultR    = 8
	DefaultP    = 1
)

// DeriveKey stretches passphrase with scrypt(salt, logN, r, p) into a
// KeySize key, returned in guarded memory. The caller owns the
// returned Buffer and must Close it.
func DeriveKey(passphrase *secret.Buffer, salt [16]byte, logN, r, p uint32) (*secret.Buffer, error) {
	if logN == 0 || logN > 30 {
		return nil, fmt.Errorf("crypt: scrypt logN=%d out of range", logN)
	}
	n := 1 << logN
	derived, err := scrypt.Key(passphrase.Bytes(), salt[:], n, int(r), int(p), KeySize)
	if err != nil {
		return nil, fmt.Errorf("crypt: scrypt derivation: %w", err)
	}
	defer secret.Zero(derived)

	buf, err := secret.NewFromBytes(derived)
	if err != nil {
		return nil, fmt.Errorf("crypt: guarding derived key: %w", err)
	}
	return buf, nil
}

// RandomSalt returns a fresh 16-byte salt for a new encrypted
// filesystem.
func RandomSalt() ([16]byte, error) {
	var salt [16]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return salt, fmt.Errorf("crypt: generating salt: %w", err)
	}
	return salt, nil
}

// Context seals and opens block payloads under one derived key. It
// satisfies imgfs.Cipher.
type Context struct {
	key *secret.Buffer
}

// NewContext wraps a derived key (from DeriveKey) into a Context. The
// Context takes ownership of key and closes it when Close is called.
func NewContext(key *secret.Buffer) (*Context, error) {
	if key.Len() != KeySize {
		return nil, fmt.Errorf("crypt: key must be %d bytes, got %d", KeySize, key.Len())
	}
	return &Context{key: key}, nil
}

// Close zeroes and releases the underlying key.
func (c *Context) Close() error {
	return c.key.Close()
}

// Seal encrypts plaintext, returning [nonce:24][ciphertext+tag:N+16].
func (c *Context) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("crypt: constructing AEAD: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypt: generating nonce: %w", err)
	}

	out := make([]byte, len(nonce), len(nonce)+len(plaintext)+aead.Overhead())
	copy(out, nonce)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Open reverses Seal. Returns an error if sealed is too short or
// authentication fails.
func (c *Context) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("crypt: sealed payload too short: %d bytes", len(sealed))
	}

	aead, err := chacha20poly1305.NewX(c.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("crypt: constructing AEAD: %w", err)
	}

	nonce := sealed[:chacha20poly1305.NonceSizeX]
	ciphertext := sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypt: authentication failed: %w", err)
	}
	return plaintext, nil
}
