// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

// memStream is a minimal in-memory Stream, used by the tests and to
// feed fuzz corpora without touching the filesystem.
type memStream struct {
	data []byte
	pos  int64
}

func newMemStream(data []byte) *memStream { return &memStream{data: data} }

func (m *memStream) Read(dst []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(dst, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memStream) SeekAbs(off int64) error {
	if off < 0 {
		off = 0
	}
	if off > int64(len(m.data)) {
		off = int64(len(m.data))
	}
	m.pos = off
	return nil
}

func (m *memStream) Tell() (int64, error) { return m.pos, nil }
func (m *memStream) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memStream) Close() error         { return nil }

// Fuzz is the legacy go-fuzz entrypoint exercising CIA header parsing,
// section-offset computation, and RomFS header/table parsing against
// arbitrary input. It returns 1 when data is "interesting" (parses
// successfully and round-trips through the content-index bitmap
// helpers), 0 otherwise, per the go-fuzz convention.
func Fuzz(data []byte) int {
	rs := newMemStream(data)

	header, err := ReadCIAHeader(rs)
	if err == nil {
		_ = header.ContentIndices()
		for _, idx := range header.ContentIndices() {
			if !header.HasContentIndex(idx) {
				panic("content index round-trip failed")
			}
		}
	}

	romfsReader := newMemStream(data)
	if rr, err := OpenRomFSReader(romfsReader); err == nil {
		_, _ = rr.GetInfo("/")
		return 1
	}

	if err == nil {
		return 1
	}
	return 0
}

// fuzzRomFS is a native go test fuzz target; see romfs_test.go for the
// FuzzRomFSReader wrapper that calls it.
func fuzzRomFS(data []byte) {
	rr, err := OpenRomFSReader(newMemStream(data))
	if err != nil {
		return
	}
	root, err := rr.GetInfo("/")
	if err != nil {
		return
	}
	it := rr.Iterate(root)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		_ = entry.Name()
	}
}

// fuzzSignature is a native go test fuzz target; see sig_test.go for
// the FuzzReadSignature wrapper that calls it.
func fuzzSignature(data []byte) {
	rs := newMemStream(data)
	sig, err := ReadSignature(rs)
	if err != nil {
		return
	}
	if int(SigDataSize(sig.Type)) > len(sig.Data) {
		panic("signature data size exceeds backing array")
	}
}
