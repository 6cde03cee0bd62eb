// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

// envelopeOverhead is the fixed size added by a Cipher.Seal call around
// a plaintext payload: a 24-byte XChaCha20-Poly1305 nonce prefix, plus
// the 16-byte authentication tag the AEAD appends after the
// ciphertext. See lib/imgfs/crypt for the concrete cipher.
const envelopeOverhead = 24 + 16

// envelopeSize returns the on-disk size of a sealed payload of n
// plaintext bytes.
func envelopeSize(n int) int {
	return n + envelopeOverhead
}
