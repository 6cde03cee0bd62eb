// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"bytes"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// wireIssue and wireReport are the CBOR-tagged mirrors of Issue and
// Report. A separate wire type keeps the in-memory Report free of
// serialization tags while giving the report a stable, versioned
// on-disk shape.
type wireIssue struct {
	Code    string `cbor:"code"`
	Detail  string `cbor:"detail"`
	Fixed   bool   `cbor:"fixed"`
	Warning bool   `cbor:"warning"`
}

type wireReport struct {
	Version        int         `cbor:"version"`
	TotalBlocks    uint32      `cbor:"total_blocks"`
	RootInode      uint32      `cbor:"root_inode"`
	Classification string      `cbor:"classification"`
	Issues         []wireIssue `cbor:"issues"`
}

const reportWireVersion = 1

func toWire(r *Report) wireReport {
	w := wireReport{
		Version:        reportWireVersion,
		TotalBlocks:    r.TotalBlocks,
		RootInode:      r.RootInode,
		Classification: r.Classification.String(),
	}
	for _, issue := range r.Issues {
		w.Issues = append(w.Issues, wireIssue{
			Code:    issue.Code,
			Detail:  issue.Detail,
			Fixed:   issue.Fixed,
			Warning: issue.Warning,
		})
	}
	return w
}

func classificationFromString(s string) Classification {
	switch s {
	case "clean":
		return Clean
	case "repaired":
		return Repaired
	case "dirty":
		return Dirty
	case "op-error":
		return OpError
	default:
		return Dirty
	}
}

func fromWire(w wireReport) *Report {
	r := &Report{
		TotalBlocks:    w.TotalBlocks,
		RootInode:      w.RootInode,
		Classification: classificationFromString(w.Classification),
	}
	for _, issue := range w.Issues {
		r.Issues = append(r.Issues, Issue{
			Code:    issue.Code,
			Detail:  issue.Detail,
			Fixed:   issue.Fixed,
			Warning: issue.Warning,
		})
	}
	return r
}

// EncodeReport serializes r as CBOR, optionally zstd-compressing the
// result when compress is true.
func EncodeReport(r *Report, compress bool) ([]byte, error) {
	payload, err := cbor.Marshal(toWire(r))
	if err != nil {
		return nil, wrapf(IO, "EncodeReport", err)
	}
	if !compress {
		return payload, nil
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, wrapf(IO, "EncodeReport", err)
	}
	if _, err := enc.Write(payload); err != nil {
		enc.Close()
		return nil, wrapf(IO, "EncodeReport", err)
	}
	if err := enc.Close(); err != nil {
		return nil, wrapf(IO, "EncodeReport", err)
	}
	return buf.Bytes(), nil
}

// DecodeReport parses a report previously produced by EncodeReport.
// Zstd-compressed input is detected by its magic frame header and
// transparently decompressed.
func DecodeReport(data []byte) (*Report, error) {
	if isZstdFrame(data) {
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, wrapf(IO, "DecodeReport", err)
		}
		defer dec.Close()
		plain, err := io.ReadAll(dec)
		if err != nil {
			return nil, wrapf(IO, "DecodeReport", err)
		}
		data = plain
	}

	var w wireReport
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, wrapf(Invalid, "DecodeReport", err)
	}
	return fromWire(w), nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func isZstdFrame(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], zstdMagic)
}
