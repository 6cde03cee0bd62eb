// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package raster implements the image-backed block device: one fixed-size
// logical block of user data, persisted as one 1000x1000 single-channel
// PNG file in a host directory.
//
// Each byte of the block payload maps to eight adjacent pixels, MSB-first:
// bit 1 encodes as the maximum-luminance sample (255), bit 0 as the
// minimum (0). A pixel strictly greater than the 8-bit midpoint (127)
// decodes back to bit 1. Row stride is exactly 1000 samples, so one row
// holds 125 bytes and the full 1000x1000 raster holds exactly
// [BlockSize] bytes.
//
// PNG (via the standard library's image and image/png packages) is the
// one raster encoding this package produces and accepts; the repository
// does not support a second, raw-binary block format. See DESIGN.md for
// why PNG was chosen over a raw-binary alternative that the original
// specification left open.
package raster
