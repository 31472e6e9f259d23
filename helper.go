// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

// Inval is the 32-bit "none" sentinel used for every intra-arena
// reference in a RomFS image (parent/sibling/child/hash-bucket links).
const Inval uint32 = 0xFFFFFFFF

// Max returns the larger of x or y.
func Max(x, y uint32) uint32 {
	if x < y {
		return y
	}
	return x
}

// Min returns the smaller of x or y.
func Min(x, y uint32) uint32 {
	if x < y {
		return x
	}
	return y
}

// alignUp32 rounds n up to the next multiple of align (align must be a
// power of two).
func alignUp32(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
