// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Raster geometry. One block is exactly one Width x Height single-channel
// image; that fixes the block payload at exactly [BlockSize] bytes.
const (
	Width     = 1000
	Height    = 1000
	bitsTotal = Width * Height

	// BlockSize is the number of payload bytes a single block holds:
	// 1,000,000 bits = 125,000 bytes.
	BlockSize = bitsTotal / 8

	// midpoint is the 8-bit grayscale decode threshold. A sample
	// strictly greater than midpoint decodes to bit 1.
	midpoint = 127
)

// Sentinel errors returned by this package. lib/imgfs maps these onto
// its own error Kind taxonomy at the boundary where it calls into raster.
var (
	// ErrIO wraps any underlying host I/O failure (open/create/read/write
	// of the backing image file).
	ErrIO = errors.New("raster: I/O failure")

	// ErrBadLen is returned by Encode when the caller's payload exceeds
	// BlockSize bytes.
	ErrBadLen = errors.New("raster: payload exceeds block size")

	// ErrBadDimensions is returned by Decode when the source image is
	// not exactly Width x Height.
	ErrBadDimensions = errors.New("raster: image is not 1000x1000")
)

// Encode renders buf (padded with zero bytes up to BlockSize) as a
// Width x Height 8-bit grayscale image. Bit 1 (MSB-first within each
// byte) becomes the maximum-luminance sample (255); bit 0 becomes the
// minimum (0). Returns ErrBadLen if len(buf) > BlockSize.
func Encode(buf []byte) (*image.Gray, error) {
	if len(buf) > BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes, max %d", ErrBadLen, len(buf), BlockSize)
	}

	img := image.NewGray(image.Rect(0, 0, Width, Height))
	for byteIndex := 0; byteIndex < BlockSize; byteIndex++ {
		var b byte
		if byteIndex < len(buf) {
			b = buf[byteIndex]
		}
		baseBit := byteIndex * 8
		for bit := 0; bit < 8; bit++ {
			pixelIndex := baseBit + bit
			row := pixelIndex / Width
			col := pixelIndex % Width
			// MSB-first: bit 7 of the byte is the leftmost pixel of the group.
			on := b&(1<<(7-uint(bit))) != 0
			var sample uint8
			if on {
				sample = 255
			}
			img.SetGray(col, row, color.Gray{Y: sample})
		}
	}
	return img, nil
}

// Decode reads back up to BlockSize bytes from img, which must be
// exactly Width x Height. A sample strictly greater than the 8-bit
// midpoint (127) decodes to bit 1, MSB-first within each output byte.
// Returns ErrBadDimensions if img's bounds don't match.
func Decode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() != Width || bounds.Dy() != Height {
		return nil, fmt.Errorf("%w: got %dx%d", ErrBadDimensions, bounds.Dx(), bounds.Dy())
	}

	out := make([]byte, BlockSize)
	gray, isGray := img.(*image.Gray)

	for pixelIndex := 0; pixelIndex < bitsTotal; pixelIndex++ {
		row := pixelIndex / Width
		col := pixelIndex % Width

		var sample uint8
		if isGray {
			sample = gray.GrayAt(bounds.Min.X+col, bounds.Min.Y+row).Y
		} else {
			r, g, b, _ := img.At(bounds.Min.X+col, bounds.Min.Y+row).RGBA()
			// Standard-library color.GrayModel conversion, applied
			// manually to avoid an allocation per pixel.
			sample = uint8((299*r + 587*g + 114*b + 500) / 1000 >> 8)
		}

		if sample > midpoint {
			byteIndex := pixelIndex / 8
			bit := uint(pixelIndex % 8)
			out[byteIndex] |= 1 << (7 - bit)
		}
	}
	return out, nil
}
