// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"errors"
	"fmt"

	"imgfs/lib/raster"
)

// Kind classifies an engine failure. Every operation that can fail
// returns an error whose Kind is discoverable via [KindOf]; collaborators
// (the FUSE bridge, the CLI front-ends) map Kind onto their own failure
// vocabulary (errno, process exit code) with a single switch.
type Kind int

const (
	// Ok is never returned as an error; it exists so the zero Kind has
	// a readable name in logs ("kind=Ok" should never appear).
	Ok Kind = iota
	IO
	NoMemory
	Full
	NotFound
	NotDir
	IsDir
	Exists
	CrossDevice
	BadMagic
	BadBlockSize
	BadDimensions
	Loop
	Invalid

	// NotEmpty is returned by Rmdir when the target directory still has
	// occupied entries. Not part of the core taxonomy's minimal set,
	// but required to give the bridge a distinct ENOTEMPTY mapping
	// instead of overloading Exists or Invalid.
	NotEmpty
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case IO:
		return "IO"
	case NoMemory:
		return "NoMemory"
	case Full:
		return "Full"
	case NotFound:
		return "NotFound"
	case NotDir:
		return "NotDir"
	case IsDir:
		return "IsDir"
	case Exists:
		return "Exists"
	case CrossDevice:
		return "CrossDevice"
	case BadMagic:
		return "BadMagic"
	case BadBlockSize:
		return "BadBlockSize"
	case BadDimensions:
		return "BadDimensions"
	case Loop:
		return "Loop"
	case Invalid:
		return "Invalid"
	case NotEmpty:
		return "NotEmpty"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error pairs a Kind with the underlying cause. It satisfies errors.Is
// against the package Err* sentinels (comparing Kind, not identity) so
// callers can write errors.Is(err, imgfs.ErrNotFound) regardless of how
// deeply the error has been wrapped.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("imgfs: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("imgfs: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(someError, ErrNotFound) (etc.) match any *Error
// with the same Kind, not just this exact instance.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == sentinel.Kind
}

// Sentinel errors, one per Kind, for use with errors.Is. Collaborators
// compare against these rather than switching on Kind directly when
// they only care about one or two cases.
var (
	ErrIO            = &Error{Kind: IO}
	ErrNoMemory      = &Error{Kind: NoMemory}
	ErrFull          = &Error{Kind: Full}
	ErrNotFound      = &Error{Kind: NotFound}
	ErrNotDir        = &Error{Kind: NotDir}
	ErrIsDir         = &Error{Kind: IsDir}
	ErrExists        = &Error{Kind: Exists}
	ErrCrossDevice   = &Error{Kind: CrossDevice}
	ErrBadMagic      = &Error{Kind: BadMagic}
	ErrBadBlockSize  = &Error{Kind: BadBlockSize}
	ErrBadDimensions = &Error{Kind: BadDimensions}
	ErrLoop          = &Error{Kind: Loop}
	ErrInvalid       = &Error{Kind: Invalid}
	ErrNotEmpty      = &Error{Kind: NotEmpty}
)

// wrapf builds an *Error of the given kind, wrapping err, with an Op
// label for logging. err may be nil.
func wrapf(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err, walking the wrap chain. Returns Ok
// if err is nil, Invalid if err is non-nil but not one of this
// package's *Error values (should not happen for errors originating in
// this package, but callers at the edge — e.g. the FUSE bridge — may
// see arbitrary errors from elsewhere).
func KindOf(err error) Kind {
	if err == nil {
		return Ok
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Invalid
}

// fromRaster translates an error returned by lib/raster into this
// package's Kind taxonomy. A payload that doesn't fit the fixed block
// size is a caller error, not a storage fault, so it maps to Invalid
// rather than getting its own Kind.
func fromRaster(op string, err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, raster.ErrBadDimensions):
		return wrapf(BadDimensions, op, err)
	case errors.Is(err, raster.ErrBadLen):
		return wrapf(Invalid, op, err)
	default:
		return wrapf(IO, op, err)
	}
}
