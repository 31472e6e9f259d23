// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MappedStream is a Stream backed by a memory-mapped file, avoiding a
// read syscall per access the way the teacher's own File.New does for
// PE images. It is the preferred way to open a CIA or RomFS image
// directly from disk.
type MappedStream struct {
	f   *os.File
	m   mmap.MMap
	pos int64
}

// OpenMappedStream memory-maps the file at path read-only.
func OpenMappedStream(path string) (*MappedStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedStream{f: f, m: m}, nil
}

// Read implements Stream.
func (m *MappedStream) Read(dst []byte) (int, error) {
	if m.pos >= int64(len(m.m)) {
		return 0, nil
	}
	n := copy(dst, m.m[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// SeekAbs implements Stream.
func (m *MappedStream) SeekAbs(off int64) error {
	if off < 0 {
		return io.ErrUnexpectedEOF
	}
	if off > int64(len(m.m)) {
		off = int64(len(m.m))
	}
	m.pos = off
	return nil
}

// Tell implements Stream.
func (m *MappedStream) Tell() (int64, error) { return m.pos, nil }

// Size implements Stream.
func (m *MappedStream) Size() (int64, error) { return int64(len(m.m)), nil }

// Close unmaps the file and closes the underlying descriptor.
func (m *MappedStream) Close() error {
	err := m.m.Unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
