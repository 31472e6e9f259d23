// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"golang.org/x/text/encoding/unicode"
)

// MaxPath bounds the number of UTF-16 code units a RomFS path component
// name may occupy: a name must be shorter than MaxPath units. There is
// no deep rationale for this exact
// figure beyond upstream compatibility; it is preserved verbatim.
const MaxPath = 1024

var utf16LittleEndian = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// utf8ToUTF16LE converts a UTF-8 name into UTF-16LE code units. It
// returns ErrNotFound if the result is MaxPath code units or longer,
// mirroring the upstream convention that an oversize name simply
// fails to resolve rather than being treated as a distinct error class.
func utf8ToUTF16LE(name string) ([]uint16, error) {
	encoded, err := utf16LittleEndian.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return nil, err
	}
	if len(encoded)%2 != 0 {
		return nil, ErrCorrupt
	}
	units := make([]uint16, len(encoded)/2)
	for i := range units {
		units[i] = uint16(encoded[2*i]) | uint16(encoded[2*i+1])<<8
	}
	if len(units) >= MaxPath {
		return nil, ErrNotFound
	}
	return units, nil
}

// utf16LEBytesToUTF8 decodes a little-endian UTF-16 byte slice (as
// stored verbatim in RomFS directory/file metadata records) into a
// UTF-8 string.
func utf16LEBytesToUTF8(b []byte) (string, error) {
	decoded, err := utf16LittleEndian.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// utf16LEEncodeBytes converts a UTF-8 name directly to its raw
// little-endian byte encoding, the representation stored in a RomFS
// metadata record's name field.
func utf16LEEncodeBytes(name string) ([]byte, error) {
	return utf16LittleEndian.NewEncoder().Bytes([]byte(name))
}

// utf16UnitsToUTF8 decodes a slice of little-endian UTF-16 code units,
// as stored in a parsed RomFS metadata record, back into a UTF-8
// string. A malformed unit sequence decodes to the Unicode replacement
// character rather than failing, since a directory entry's name should
// never prevent it from being listed.
func utf16UnitsToUTF8(units []uint16) string {
	raw := make([]byte, len(units)*2)
	for i, u := range units {
		raw[2*i] = byte(u)
		raw[2*i+1] = byte(u >> 8)
	}
	s, err := utf16LEBytesToUTF8(raw)
	if err != nil {
		return string(raw)
	}
	return s
}
