// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package raster

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
)

// Ext is the file extension used for block image files. Chosen to make
// the one supported raster encoding (PNG) discoverable from the
// directory listing alone.
const Ext = ".png"

// Path returns the host path of block id's image file within dir.
func Path(dir string, id uint32) string {
	return filepath.Join(dir, fmt.Sprintf("block%d%s", id, Ext))
}

// CreateEmptyBlock creates the image file for block id with all
// BlockSize payload bytes zero (an all-black raster). Fails with
// ErrIO wrapped around the underlying cause.
func CreateEmptyBlock(dir string, id uint32) error {
	return WriteBlock(dir, id, nil, 0)
}

// WriteBlock writes the first len(buf) bytes (len(buf) must be <=
// BlockSize) at offset 0 of block id; the remainder of the block is
// zero-padded. Creates the file if absent, overwrites it if present.
func WriteBlock(dir string, id uint32, buf []byte, n int) error {
	if n > len(buf) {
		n = len(buf)
	}
	if n > BlockSize {
		return fmt.Errorf("%w: got %d bytes, max %d", ErrBadLen, n, BlockSize)
	}

	img, err := Encode(buf[:n])
	if err != nil {
		return err
	}

	path := Path(dir, id)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIO, path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrIO, path, err)
	}
	return nil
}

// ReadBlock reads the first n bytes (n must be <= BlockSize) of block
// id's payload into out, which must have length >= n. Returns
// ErrBadDimensions if the underlying image is not 1000x1000, ErrIO on
// any other failure.
func ReadBlock(dir string, id uint32, out []byte, n int) error {
	if n > BlockSize {
		n = BlockSize
	}

	path := Path(dir, id)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrIO, path, err)
	}

	decoded, err := Decode(img)
	if err != nil {
		return err
	}
	copy(out[:n], decoded[:n])
	return nil
}
