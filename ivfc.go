// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

// ivfcMagic and ivfcID are the 8 fixed bytes every IVFC container
// begins with.
var ivfcMagic = [4]byte{'I', 'V', 'F', 'C'}

const ivfcID = 0x00010000

// ivfcHeaderSize is the meaningful header size; callers read 0x60
// bytes (ivfcHeaderReadSize) to keep reads aligned, per the upstream
// convention the original C reader follows.
const (
	ivfcHeaderSize     = 0x5C
	ivfcHeaderReadSize = 0x60
	ivfcLevelCount     = 3
)

// IVFCBlockSizeRomFS is the block size used when hashing the RomFS
// Level-3 payload.
const IVFCBlockSizeRomFS = 0x1000

// ivfcLevel is one of the three level descriptors embedded in the IVFC
// header.
type ivfcLevel struct {
	LogicalOffset uint64
	HashDataSize  uint64
	BlockSizeLog2 uint32
	Reserved      uint32
}

// ivfcHeader is the outer hash-tree container header wrapping a RomFS
// image's Level-3 payload.
type ivfcHeader struct {
	MasterHashSize uint32
	Levels         [ivfcLevelCount]ivfcLevel
	OptionalSize   uint32
}

// parseIVFCHeader reads and validates the fixed IVFC header at offset 0
// of rs.
func parseIVFCHeader(rs Stream) (ivfcHeader, error) {
	var h ivfcHeader
	var buf [ivfcHeaderReadSize]byte
	if err := ReadAtExact(rs, 0, buf[:]); err != nil {
		return h, err
	}
	if !bytes.Equal(buf[0:4], ivfcMagic[:]) || binary.LittleEndian.Uint32(buf[4:8]) != ivfcID {
		return h, ErrCorrupt
	}
	h.MasterHashSize = binary.LittleEndian.Uint32(buf[0x08:0x0C])
	for i := 0; i < ivfcLevelCount; i++ {
		off := 0x0C + i*0x18
		h.Levels[i] = ivfcLevel{
			LogicalOffset: binary.LittleEndian.Uint64(buf[off : off+8]),
			HashDataSize:  binary.LittleEndian.Uint64(buf[off+8 : off+16]),
			BlockSizeLog2: binary.LittleEndian.Uint32(buf[off+16 : off+20]),
			Reserved:      binary.LittleEndian.Uint32(buf[off+20 : off+24]),
		}
	}
	h.OptionalSize = binary.LittleEndian.Uint32(buf[0x54:0x58])
	return h, nil
}

// level3BlockSize returns the block size the Level-3 payload was hashed
// with.
func (h ivfcHeader) level3BlockSize() uint32 {
	return 1 << h.Levels[2].BlockSizeLog2
}

// level3Offset locates the start of the Level-3 payload: the
// master hash region, aligned up to the Level-3 block size. This
// mirrors the original reader exactly — it is the only placement rule
// RomFS reading depends on; the intermediate levels of a full IVFC
// hash tree are not consulted when simply opening the filesystem (see
// DESIGN.md).
func (h ivfcHeader) level3Offset() int64 {
	return alignUp(int64(ivfcHeaderReadSize)+int64(h.MasterHashSize), int64(h.level3BlockSize()))
}

// ivfcWriter accumulates a Level-3 payload in memory and, on Close,
// hashes it in block-sized chunks to produce the master hash, then
// emits header + master hash + payload to the underlying writer.
//
// The real on-console format chains two intermediate hash levels
// between the master hash and the payload (for incremental streaming
// verification); this writer collapses them into the single hash level
// the reader actually consults, per DESIGN.md's resolution of the
// "bit-exact hash tree" open question.
type ivfcWriter struct {
	ws        Writer
	blockSize uint32
	buf       bytes.Buffer
	aborted   bool
}

func openIVFCWriter(ws Writer, blockSize uint32) *ivfcWriter {
	return &ivfcWriter{ws: ws, blockSize: blockSize}
}

// Write implements Writer, buffering the Level-3 payload.
func (w *ivfcWriter) Write(src []byte) error {
	_, err := w.buf.Write(src)
	return err
}

// Close computes the master hash over the buffered Level-3 payload and
// flushes header + master hash + payload to the underlying writer.
func (w *ivfcWriter) Close() error {
	payload := w.buf.Bytes()
	masterHash := hashBlocks(payload, w.blockSize)

	header := make([]byte, ivfcHeaderReadSize)
	copy(header[0:4], ivfcMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], ivfcID)
	binary.LittleEndian.PutUint32(header[0x08:0x0C], uint32(len(masterHash)))

	// Level 1 and 2 descriptors are populated with plausible logical
	// sizes for forward compatibility but carry no on-disk data of
	// their own in this writer; only the Level-3 descriptor's block
	// size is load-bearing for the reader.
	blockLog2 := log2Uint32(w.blockSize)
	putLevel := func(i int, logicalOffset, hashDataSize uint64) {
		off := 0x0C + i*0x18
		binary.LittleEndian.PutUint64(header[off:off+8], logicalOffset)
		binary.LittleEndian.PutUint64(header[off+8:off+16], hashDataSize)
		binary.LittleEndian.PutUint32(header[off+16:off+20], blockLog2)
	}
	putLevel(0, 0, uint64(len(masterHash)))
	putLevel(1, 0, uint64(len(masterHash)))
	putLevel(2, 0, uint64(len(payload)))

	l3Offset := alignUp(int64(ivfcHeaderReadSize)+int64(len(masterHash)), int64(w.blockSize))
	padding := make([]byte, l3Offset-int64(ivfcHeaderReadSize)-int64(len(masterHash)))

	for _, chunk := range [][]byte{header, masterHash, padding, payload} {
		if len(chunk) == 0 {
			continue
		}
		if err := w.ws.Write(chunk); err != nil {
			w.abort()
			return err
		}
	}
	return w.ws.Close()
}

// abort marks the writer aborted; callers that see Close fail should
// not treat the underlying writer's contents as valid output.
func (w *ivfcWriter) abort() {
	w.aborted = true
}

// hashBlocks returns the concatenation of SHA-256(block) for each
// blockSize-sized chunk of data (the final chunk may be shorter).
func hashBlocks(data []byte, blockSize uint32) []byte {
	if blockSize == 0 {
		blockSize = IVFCBlockSizeRomFS
	}
	var out bytes.Buffer
	for off := 0; off < len(data) || len(data) == 0 && off == 0; off += int(blockSize) {
		end := off + int(blockSize)
		if end > len(data) {
			end = len(data)
		}
		sum := sha256.Sum256(data[off:end])
		out.Write(sum[:])
		if len(data) == 0 {
			break
		}
	}
	return out.Bytes()
}

// log2Uint32 returns the base-2 logarithm of n, which must be a power
// of two.
func log2Uint32(n uint32) uint32 {
	var log2 uint32
	for n > 1 {
		n >>= 1
		log2++
	}
	return log2
}
