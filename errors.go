// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import "errors"

// Errors returned by the package. Every fallible operation returns one
// of these (or wraps a propagated error from the underlying stream or
// crypto primitive); none of them are panics.
var (
	// ErrTooSmall is returned when a stream yielded fewer bytes than
	// requested for an exact read.
	ErrTooSmall = errors.New("nnc: stream returned fewer bytes than requested")

	// ErrCorrupt is returned when a format magic or length field failed
	// its sanity check.
	ErrCorrupt = errors.New("nnc: corrupt container")

	// ErrNotFound is returned when a path lookup, content index, or
	// optional section was absent.
	ErrNotFound = errors.New("nnc: not found")

	// ErrNotAFile is returned when a directory record was opened as a
	// file stream.
	ErrNotAFile = errors.New("nnc: not a file")

	// ErrInvalidSig is returned when a signature's algorithm tag is out
	// of range or its fixed prefix is wrong.
	ErrInvalidSig = errors.New("nnc: invalid signature")

	// ErrInvalidCert is returned when a certificate's type field is not
	// one of the three known key types.
	ErrInvalidCert = errors.New("nnc: invalid certificate")

	// ErrCertNotFound is returned when no certificate in the chain
	// resolves a signature's issuer.
	ErrCertNotFound = errors.New("nnc: certificate not found in chain")

	// ErrBadSig is returned when a signature did not cryptographically
	// verify.
	ErrBadSig = errors.New("nnc: signature verification failed")

	// ErrNoMem mirrors an upstream allocation failure. No operation in
	// this package returns it, since the Go runtime allocator panics
	// rather than returning an error.
	ErrNoMem = errors.New("nnc: allocation failed")
)
