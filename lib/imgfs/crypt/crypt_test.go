// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crypt

import (
	"bytes"
	"testing"

	"imgfs/lib/secret"
)

func mustPassphrase(t *testing.T, s string) *secret.Buffer {
	t.Helper()
	buf, err := secret.NewFromBytes([]byte(s))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	return buf
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}

	k1, err := DeriveKey(mustPassphrase(t, "correct horse battery staple"), salt, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer k1.Close()

	k2, err := DeriveKey(mustPassphrase(t, "correct horse battery staple"), salt, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer k2.Close()

	if !bytes.Equal(k1.Bytes(), k2.Bytes()) {
		t.Error("same passphrase+salt+params produced different keys")
	}
}

func TestDeriveKeyDifferentSaltDifferentKey(t *testing.T) {
	saltA, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}
	saltB, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}
	if saltA == saltB {
		t.Skip("salts collided, cannot test divergence")
	}

	k1, err := DeriveKey(mustPassphrase(t, "same passphrase"), saltA, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer k1.Close()

	k2, err := DeriveKey(mustPassphrase(t, "same passphrase"), saltB, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer k2.Close()

	if bytes.Equal(k1.Bytes(), k2.Bytes()) {
		t.Error("different salts produced the same key")
	}
}

func TestContextSealOpenRoundTrip(t *testing.T) {
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}
	key, err := DeriveKey(mustPassphrase(t, "passphrase"), salt, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	ctx, err := NewContext(key)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	plaintext := []byte("inode payload bytes")
	sealed, err := ctx.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("sealed output contains the plaintext verbatim")
	}

	opened, err := ctx.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open = %q, want %q", opened, plaintext)
	}
}

func TestContextOpenRejectsTamperedCiphertext(t *testing.T) {
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}
	key, err := DeriveKey(mustPassphrase(t, "passphrase"), salt, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	ctx, err := NewContext(key)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	sealed, err := ctx.Seal([]byte("sensitive"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF

	if _, err := ctx.Open(sealed); err == nil {
		t.Error("Open accepted tampered ciphertext")
	}
}

func TestContextOpenRejectsWrongKey(t *testing.T) {
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}
	keyA, err := DeriveKey(mustPassphrase(t, "passphrase-a"), salt, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	ctxA, err := NewContext(keyA)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctxA.Close()

	keyB, err := DeriveKey(mustPassphrase(t, "passphrase-b"), salt, 12, DefaultR, DefaultP)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	ctxB, err := NewContext(keyB)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctxB.Close()

	sealed, err := ctxA.Seal([]byte("sensitive"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := ctxB.Open(sealed); err == nil {
		t.Error("Open succeeded under the wrong key")
	}
}
