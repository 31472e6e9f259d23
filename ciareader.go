// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"os"

	"github.com/3ds-tools/nnc/internal/log"
)

// CIAReaderOptions configures NewCIAReader. A nil Logger falls back to
// a stderr-backed logger filtered to warnings and above, the same
// convention the teacher's own File.New uses for its *Options.Logger.
type CIAReaderOptions struct {
	Logger log.Logger
}

// CIAReader is the content-reading half of a CIA: it retains the CIA
// header and parent stream, the TMD's chunk records, and the title key
// recovered from the ticket. Per the resource-ownership contract, the
// parent stream and the *CIAHeader passed to NewCIAReader must outlive
// the reader.
type CIAReader struct {
	rs      Stream
	header  *CIAHeader
	chunks  []ChunkRecord
	titleID uint64
	key     [16]byte
	logger  *log.Helper
}

// NewCIAReader parses the TMD and ticket sections of a CIA and derives
// its title key, returning a reader that can subsequently open any of
// its contents. Per upstream convention, a failed call leaves no valid
// reader to release — there is nothing to free on the Go side since
// CIAReader holds no resources beyond Go-managed memory and a borrowed
// stream, but callers should still discard the error.
func NewCIAReader(header *CIAHeader, rs Stream, ks Keyset, opts *CIAReaderOptions) (*CIAReader, error) {
	if opts == nil {
		opts = &CIAReaderOptions{}
	}
	var helper *log.Helper
	if opts.Logger != nil {
		helper = log.NewHelper(opts.Logger)
	} else {
		helper = log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelWarn)))
	}

	tmdSv := header.OpenTMD(rs)
	tmdHeader, err := ReadTMDHeader(tmdSv)
	if err != nil {
		return nil, err
	}
	chunks, err := ReadTMDChunkRecords(tmdSv, tmdHeader)
	if err != nil {
		return nil, err
	}

	ticketSv := header.OpenTicket(rs)
	ticket, err := ReadTicket(ticketSv)
	if err != nil {
		return nil, err
	}

	key, err := DecryptTitleKey(ks, ticket)
	if err != nil {
		return nil, err
	}

	helper.Debugf("opened CIA reader for title %016x with %d contents", tmdHeader.TitleID, len(chunks))

	return &CIAReader{
		rs:      rs,
		header:  header,
		chunks:  chunks,
		titleID: tmdHeader.TitleID,
		key:     key,
		logger:  helper,
	}, nil
}

// OpenContent returns a Stream yielding the decrypted (or, if not
// marked encrypted, raw) bytes of the content at index, along with its
// chunk record. It returns ErrNotFound if no chunk with that index
// exists in the TMD.
func (r *CIAReader) OpenContent(index uint16) (Stream, *ChunkRecord, error) {
	var target *ChunkRecord
	var offset int64
	base := r.header.contentBase()

	for i := range r.chunks {
		c := &r.chunks[i]
		if c.ContentIndex == index {
			target = c
			break
		}
		offset += int64(c.ContentSize)
	}
	if target == nil {
		return nil, nil, ErrNotFound
	}

	contentOffset := base + offset
	sv := NewSubview(r.rs, contentOffset, int64(target.ContentSize))

	if !target.Encrypted() {
		return sv, target, nil
	}

	var iv [16]byte
	binary.BigEndian.PutUint16(iv[0:2], index)
	stream, err := newAESCBCStream(sv, r.key, iv)
	if err != nil {
		return nil, nil, err
	}
	return stream, target, nil
}

// aesCBCStream decrypts a CBC-encrypted Subview block by block as it is
// read. It is the encrypted variant of the tagged union spec.md
// describes as the "C-stream"; the plain variant is simply the
// *Subview OpenContent returns directly.
type aesCBCStream struct {
	sv     *Subview
	stream cipher.BlockMode
	block  cipher.Block
	iv     [16]byte
}

func newAESCBCStream(sv *Subview, key, iv [16]byte) (*aesCBCStream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &aesCBCStream{
		sv:     sv,
		block:  block,
		stream: cipher.NewCBCDecrypter(block, iv[:]),
		iv:     iv,
	}, nil
}

// Read decrypts aes.BlockSize-aligned chunks. Content sizes in CIA
// packages are always multiples of the AES block size, so short reads
// are only returned at end of stream.
func (a *aesCBCStream) Read(dst []byte) (int, error) {
	want := len(dst) - (len(dst) % aes.BlockSize)
	if want == 0 && len(dst) > 0 {
		want = aes.BlockSize
	}
	buf := make([]byte, want)
	n, err := a.sv.Read(buf)
	if n == 0 {
		return 0, err
	}
	n -= n % aes.BlockSize
	if n == 0 {
		return 0, err
	}
	a.stream.CryptBlocks(dst[:n], buf[:n])
	return n, err
}

func (a *aesCBCStream) SeekAbs(off int64) error {
	// CBC decryption only streams forward: any seek restarts the
	// cipher at the view's start and re-derives chaining state by
	// decrypting (and discarding) up to off, in bounded chunks.
	if err := a.sv.SeekAbs(0); err != nil {
		return err
	}
	a.stream = cipher.NewCBCDecrypter(a.block, a.iv[:])
	if off == 0 {
		return nil
	}

	const chunk = 64 * 1024
	discard := make([]byte, chunk)
	remaining := off
	for remaining > 0 {
		want := int64(chunk)
		if remaining < want {
			want = remaining
		}
		n, err := a.Read(discard[:want])
		remaining -= int64(n)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTooSmall
		}
	}
	return nil
}

func (a *aesCBCStream) Tell() (int64, error) { return a.sv.Tell() }
func (a *aesCBCStream) Size() (int64, error) { return a.sv.Size() }
func (a *aesCBCStream) Close() error         { return a.sv.Close() }
