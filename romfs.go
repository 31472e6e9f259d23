// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"encoding/binary"
)

// romfsLevel3HeaderSize is the size of the Level-3 header read: a
// leading size field, four (offset, length) pairs and the data offset.
const romfsLevel3HeaderSize = 0x30

// romfsLevel3MagicSize is the on-disk size of the meaningful portion of
// the Level-3 header; the remainder of the romfsLevel3HeaderSize read is
// padding kept only to align the read.
const romfsLevel3MagicSize = 0x28

// offLen is an (offset, length) pair, as used throughout the RomFS
// Level-3 header to locate each of its four tables.
type offLen struct {
	Offset int64
	Length int64
}

// RomFSHeader locates the four tables (directory hash buckets,
// directory metadata, file hash buckets, file metadata) and the file
// data region of a RomFS image, all as absolute offsets into the
// stream the image was read from.
type RomFSHeader struct {
	DirHash    offLen
	DirMeta    offLen
	FileHash   offLen
	FileMeta   offLen
	DataOffset int64
}

// ReadRomFSHeader reads and validates the IVFC outer header and the
// RomFS Level-3 header it wraps, starting at offset 0 of rs.
func ReadRomFSHeader(rs Stream) (RomFSHeader, error) {
	var h RomFSHeader

	ivfc, err := parseIVFCHeader(rs)
	if err != nil {
		return h, err
	}
	l3Offset := ivfc.level3Offset()

	var l3 [romfsLevel3HeaderSize]byte
	if err := ReadAtExact(rs, l3Offset, l3[:]); err != nil {
		return h, err
	}
	if !bytes.Equal(l3[0:4], []byte{0x28, 0x00, 0x00, 0x00}) {
		return h, ErrCorrupt
	}

	pair := func(off int) offLen {
		return offLen{
			Offset: int64(binary.LittleEndian.Uint32(l3[off:off+4])) + l3Offset,
			Length: int64(binary.LittleEndian.Uint32(l3[off+4 : off+8])),
		}
	}
	h.DirHash = pair(0x04)
	h.DirMeta = pair(0x0C)
	h.FileHash = pair(0x14)
	h.FileMeta = pair(0x1C)
	h.DataOffset = int64(binary.LittleEndian.Uint32(l3[0x24:0x28])) + l3Offset

	return h, nil
}

// romfsHashFunc is Nintendo's directory-entry hash: seeded by the
// parent offset, then mixed with each UTF-16LE code unit of the name
// via a 5-bit rotate and XOR.
func romfsHashFunc(name []uint16, parent uint32) uint32 {
	h := parent ^ 123456789
	for _, c := range name {
		h = (h >> 5) | (h << 27)
		h ^= uint32(c)
	}
	return h
}

// romfsIsComposite reports whether x is divisible by one of the six
// smallest odd primes (and 2) — the sieve the original hash table
// sizing heuristic uses in place of a real primality test.
func romfsIsComposite(x uint32) bool {
	return x%2 == 0 || x%3 == 0 || x%5 == 0 || x%7 == 0 ||
		x%11 == 0 || x%13 == 0 || x%17 == 0
}

// romfsNextPrime returns the smallest value >= x not divisible by any
// of the primes romfsIsComposite sieves against. It is not a true
// primality test (361 = 19*19 is accepted, since no sieved prime
// divides it) but it is exactly what the
// original tool computes, so the hash tables it builds round-trip.
func romfsNextPrime(x uint32) uint32 {
	for romfsIsComposite(x) {
		x++
	}
	return x
}

// romfsTableLength returns the number of buckets the hash table for
// entries items should have. The entries-in-{8,9,14,15} cases
// deliberately do not produce a prime — that mismatch from the
// function's apparent intent is preserved verbatim, matching the
// original tool bit for bit (see DESIGN.md).
func romfsTableLength(entries uint32) uint32 {
	switch {
	case entries <= 3:
		return 3
	case entries <= 19:
		return entries | 1
	default:
		return romfsNextPrime(entries)
	}
}
