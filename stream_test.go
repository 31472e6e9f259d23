// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"errors"
	"testing"
)

func TestSubviewReadBounded(t *testing.T) {
	parent := newMemStream([]byte("0123456789"))
	sv := NewSubview(parent, 2, 4)

	buf := make([]byte, 10)
	n, err := sv.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 4 || string(buf[:n]) != "2345" {
		t.Fatalf("got %q (%d), want %q (4)", buf[:n], n, "2345")
	}

	n, err = sv.Read(buf)
	if err != nil || n != 0 {
		t.Fatalf("expected clean EOF, got n=%d err=%v", n, err)
	}
}

func TestSubviewSeekClamps(t *testing.T) {
	parent := newMemStream(bytes.Repeat([]byte{0xAA}, 100))
	sv := NewSubview(parent, 10, 20)

	if err := sv.SeekAbs(1000); err != nil {
		t.Fatalf("SeekAbs failed: %v", err)
	}
	pos, _ := sv.Tell()
	if pos != 20 {
		t.Fatalf("SeekAbs(1000) did not clamp to length 20, got %d", pos)
	}

	if err := sv.SeekAbs(-5); err != nil {
		t.Fatalf("SeekAbs failed: %v", err)
	}
	pos, _ = sv.Tell()
	if pos != 0 {
		t.Fatalf("SeekAbs(-5) did not clamp to 0, got %d", pos)
	}
}

func TestReadExactTooSmall(t *testing.T) {
	rs := newMemStream([]byte{1, 2, 3})
	dst := make([]byte, 10)
	if err := ReadExact(rs, dst); !errors.Is(err, ErrTooSmall) {
		t.Fatalf("expected ErrTooSmall, got %v", err)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want int64
	}{
		{0, 64, 0},
		{1, 64, 64},
		{63, 64, 64},
		{64, 64, 64},
		{65, 64, 128},
		{0x2020, 64, 0x2040},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("alignUp(%#x, %d) = %#x, want %#x", tt.n, tt.align, got, tt.want)
		}
	}
}

func TestNestedSubview(t *testing.T) {
	parent := newMemStream([]byte("abcdefghijklmnop"))
	outer := NewSubview(parent, 4, 8) // "efghijkl"
	inner := NewSubview(outer, 2, 4)  // "ghij"

	buf := make([]byte, 4)
	n, err := inner.Read(buf)
	if err != nil || n != 4 || string(buf) != "ghij" {
		t.Fatalf("nested subview read = %q (%d), err=%v", buf[:n], n, err)
	}
}
