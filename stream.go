// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"io"
)

// Stream is the polymorphic seekable byte-stream capability set every
// other component in this module reads through. It deliberately mirrors
// the smallest interface that can be backed by an in-memory buffer, an
// mmap'd file, or an arbitrary io.ReadSeekCloser.
type Stream interface {
	// Read reads up to len(dst) bytes, returning the number actually
	// read. A short read is not an error by itself; callers that need
	// an exact count use ReadExact.
	Read(dst []byte) (int, error)

	// SeekAbs moves the stream's position to off, measured from the
	// start of the stream (or, for a Subview, from the start of the
	// view). Seeking past the end clamps to the end.
	SeekAbs(off int64) error

	// Tell returns the current position.
	Tell() (int64, error)

	// Size returns the total length of the stream.
	Size() (int64, error)

	// Close releases any resources held by the stream.
	Close() error
}

// Writer is the sink-side counterpart of Stream.
type Writer interface {
	Write(src []byte) error
	Close() error
}

// ReadExact reads exactly len(dst) bytes from rs at its current
// position, or returns ErrTooSmall.
func ReadExact(rs Stream, dst []byte) error {
	n, err := rs.Read(dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return ErrTooSmall
	}
	return nil
}

// ReadAtExact seeks rs to offset and then reads exactly len(dst) bytes.
func ReadAtExact(rs Stream, offset int64, dst []byte) error {
	if err := rs.SeekAbs(offset); err != nil {
		return err
	}
	return ReadExact(rs, dst)
}

// Subview restricts a parent Stream to a half-open byte range and
// translates offsets so callers see a zero-based stream of length
// Length. Subviews compose: a Subview opened over another Subview is
// still translated correctly because every SeekAbs/Read goes through
// the parent's own Stream interface.
type Subview struct {
	parent Stream
	base   int64
	length int64
	pos    int64
}

// SubviewOpen initializes sv as a window into parent spanning
// [base, base+length).
func SubviewOpen(sv *Subview, parent Stream, base, length int64) {
	sv.parent = parent
	sv.base = base
	sv.length = length
	sv.pos = 0
}

// NewSubview is the allocating counterpart of SubviewOpen.
func NewSubview(parent Stream, base, length int64) *Subview {
	sv := &Subview{}
	SubviewOpen(sv, parent, base, length)
	return sv
}

// Read implements Stream. Reads past the view's length are bounded to
// the view, so a caller asking for more than remains gets a short read
// rather than bleeding into the parent's next bytes.
func (sv *Subview) Read(dst []byte) (int, error) {
	if sv.pos >= sv.length {
		return 0, nil
	}
	remaining := sv.length - sv.pos
	want := int64(len(dst))
	if want > remaining {
		want = remaining
	}
	if err := sv.parent.SeekAbs(sv.base + sv.pos); err != nil {
		return 0, err
	}
	n, err := sv.parent.Read(dst[:want])
	sv.pos += int64(n)
	return n, err
}

// SeekAbs implements Stream, clamping to the view's length.
func (sv *Subview) SeekAbs(off int64) error {
	if off < 0 {
		off = 0
	}
	if off > sv.length {
		off = sv.length
	}
	sv.pos = off
	return nil
}

// Tell implements Stream.
func (sv *Subview) Tell() (int64, error) { return sv.pos, nil }

// Size implements Stream.
func (sv *Subview) Size() (int64, error) { return sv.length, nil }

// Close implements Stream. Subviews do not own their parent, so this is
// a no-op; the parent must outlive any subview opened over it.
func (sv *Subview) Close() error { return nil }

// readSeekCloserStream adapts any io.ReadSeekCloser to Stream.
type readSeekCloserStream struct {
	rsc io.ReadSeekCloser
}

// FromReadSeeker wraps an io.ReadSeekCloser as a Stream. This is the
// general-purpose adapter for callers who already have an *os.File or
// similar handle and don't need the mmap-backed implementation.
func FromReadSeeker(rsc io.ReadSeekCloser) Stream {
	return &readSeekCloserStream{rsc: rsc}
}

func (s *readSeekCloserStream) Read(dst []byte) (int, error) {
	n, err := s.rsc.Read(dst)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (s *readSeekCloserStream) SeekAbs(off int64) error {
	size, err := s.Size()
	if err != nil {
		return err
	}
	if off > size {
		off = size
	}
	_, err = s.rsc.Seek(off, io.SeekStart)
	return err
}

func (s *readSeekCloserStream) Tell() (int64, error) {
	return s.rsc.Seek(0, io.SeekCurrent)
}

func (s *readSeekCloserStream) Size() (int64, error) {
	cur, err := s.rsc.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.rsc.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.rsc.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func (s *readSeekCloserStream) Close() error { return s.rsc.Close() }

// alignUp rounds n up to the next multiple of align (align must be a
// power of two).
func alignUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}
