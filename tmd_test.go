// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildTMDBytes(titleID uint64, contentCount uint16, chunks []ChunkRecord) []byte {
	var buf bytes.Buffer
	buf.Write(buildSignatureBytes(SigRSA2048SHA256, bytes.Repeat([]byte{0}, 256), "Root-CA00000003-CP0000000b"))
	buf.Write(make([]byte, 64)) // issuer, already consumed by ReadSignature's own 64 bytes; TMD has its own issuer field too

	var fixed [tmdHeaderFixedSize]byte
	binary.BigEndian.PutUint64(fixed[0x0C:], titleID)
	binary.BigEndian.PutUint16(fixed[0x66:], contentCount)
	buf.Write(fixed[:])

	buf.Write(make([]byte, tmdContentInfoTableSize))

	for _, c := range chunks {
		var rec [chunkRecordSize]byte
		binary.BigEndian.PutUint32(rec[0x00:], c.ContentID)
		binary.BigEndian.PutUint16(rec[0x04:], c.ContentIndex)
		binary.BigEndian.PutUint16(rec[0x06:], c.ContentType)
		binary.BigEndian.PutUint64(rec[0x08:], c.ContentSize)
		copy(rec[0x10:], c.Hash[:])
		buf.Write(rec[:])
	}

	return buf.Bytes()
}

func TestReadTMDHeaderAndChunks(t *testing.T) {
	chunks := []ChunkRecord{
		{ContentID: 0, ContentIndex: 0, ContentType: ContentTypeEncrypted, ContentSize: 0x1000},
		{ContentID: 1, ContentIndex: 1, ContentType: 0, ContentSize: 0x2000},
	}
	raw := buildTMDBytes(0x0004000000123456, 2, chunks)

	rs := newMemStream(raw)
	header, err := ReadTMDHeader(rs)
	if err != nil {
		t.Fatalf("ReadTMDHeader failed: %v", err)
	}
	if header.TitleID != 0x0004000000123456 {
		t.Errorf("TitleID = %#x, want %#x", header.TitleID, 0x0004000000123456)
	}
	if header.ContentCount != 2 {
		t.Errorf("ContentCount = %d, want 2", header.ContentCount)
	}

	got, err := ReadTMDChunkRecords(rs, header)
	if err != nil {
		t.Fatalf("ReadTMDChunkRecords failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if !got[0].Encrypted() {
		t.Errorf("chunk[0].Encrypted() = false, want true")
	}
	if got[1].Encrypted() {
		t.Errorf("chunk[1].Encrypted() = true, want false")
	}
	if got[1].ContentSize != 0x2000 {
		t.Errorf("chunk[1].ContentSize = %#x, want 0x2000", got[1].ContentSize)
	}
}
