// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"encoding/binary"
)

// ContentType bits carried by a chunk record's content_type field.
const (
	ContentTypeEncrypted = 0x0001
	ContentTypeDisc      = 0x0002
	ContentTypeCFM       = 0x0004
	ContentTypeOptional  = 0x4000
	ContentTypeShared    = 0x8000
)

// TMDHeader is the fixed-size portion of title metadata that follows
// the leading Signature: issuer chain, title identity, and the content
// count that bounds the chunk-record table which follows the content
// info records.
type TMDHeader struct {
	Sig                    Signature
	Issuer                 string
	Version                uint8
	CACRLVersion           uint8
	SignerCRLVersion       uint8
	SystemVersion          uint64
	TitleID                uint64
	TitleType              uint32
	GroupID                uint16
	SaveDataSize           uint32
	SRLPrivateSaveDataSize uint32
	SRLFlag                uint8
	AccessRights           uint32
	TitleVersion           uint16
	ContentCount           uint16
	BootContent            uint16
	ContentInfoRecordsHash [32]byte
}

// tmdHeaderFixedSize is the size, in bytes, of the fixed-layout fields
// following the signature and the 64-byte issuer string, up to but
// excluding the 64-entry content-info-records table.
const tmdHeaderFixedSize = 0x9C

// tmdContentInfoTableSize is the size of the content info records
// table that sits between the fixed header and the chunk records.
const tmdContentInfoTableSize = 64 * 36

// ReadTMDHeader reads the signature and fixed header of a TMD from rs
// at its current position. rs is left positioned immediately after the
// content info records table, ready for ReadTMDChunkRecords.
func ReadTMDHeader(rs Stream) (TMDHeader, error) {
	var h TMDHeader

	sig, err := ReadSignature(rs)
	if err != nil {
		return h, err
	}
	h.Sig = sig

	var issuer [64]byte
	if err := ReadExact(rs, issuer[:]); err != nil {
		return h, err
	}
	h.Issuer = cStringFromBytes(issuer[:])

	var buf [tmdHeaderFixedSize]byte
	if err := ReadExact(rs, buf[:]); err != nil {
		return h, err
	}

	h.Version = buf[0x00]
	h.CACRLVersion = buf[0x01]
	h.SignerCRLVersion = buf[0x02]
	h.SystemVersion = binary.BigEndian.Uint64(buf[0x04:0x0C])
	h.TitleID = binary.BigEndian.Uint64(buf[0x0C:0x14])
	h.TitleType = binary.BigEndian.Uint32(buf[0x14:0x18])
	h.GroupID = binary.BigEndian.Uint16(buf[0x18:0x1A])
	h.SaveDataSize = binary.LittleEndian.Uint32(buf[0x1A:0x1E])
	h.SRLPrivateSaveDataSize = binary.LittleEndian.Uint32(buf[0x1E:0x22])
	h.SRLFlag = buf[0x22]
	h.AccessRights = binary.BigEndian.Uint32(buf[0x60:0x64])
	h.TitleVersion = binary.BigEndian.Uint16(buf[0x64:0x66])
	h.ContentCount = binary.BigEndian.Uint16(buf[0x66:0x68])
	h.BootContent = binary.BigEndian.Uint16(buf[0x68:0x6A])
	copy(h.ContentInfoRecordsHash[:], buf[0x6C:0x8C])

	var contentInfoTable [tmdContentInfoTableSize]byte
	if err := ReadExact(rs, contentInfoTable[:]); err != nil {
		return h, err
	}

	return h, nil
}

// ChunkRecord is one entry of a TMD's content chunk table: which
// content it describes, its type bitmask (see ContentType*), its size,
// and its expected SHA-256 hash.
type ChunkRecord struct {
	ContentID    uint32
	ContentIndex uint16
	ContentType  uint16
	ContentSize  uint64
	Hash         [32]byte
}

// Encrypted reports whether the ENCRYPTED bit is set in the chunk's
// content type.
func (c ChunkRecord) Encrypted() bool {
	return c.ContentType&ContentTypeEncrypted != 0
}

const chunkRecordSize = 4 + 2 + 2 + 8 + 32

// ReadTMDChunkRecords reads header.ContentCount chunk records from rs
// at its current position (immediately following ReadTMDHeader).
func ReadTMDChunkRecords(rs Stream, header TMDHeader) ([]ChunkRecord, error) {
	records := make([]ChunkRecord, header.ContentCount)
	var buf [chunkRecordSize]byte
	for i := range records {
		if err := ReadExact(rs, buf[:]); err != nil {
			return nil, err
		}
		records[i] = ChunkRecord{
			ContentID:    binary.BigEndian.Uint32(buf[0x00:0x04]),
			ContentIndex: binary.BigEndian.Uint16(buf[0x04:0x06]),
			ContentType:  binary.BigEndian.Uint16(buf[0x06:0x08]),
			ContentSize:  binary.BigEndian.Uint64(buf[0x08:0x10]),
		}
		copy(records[i].Hash[:], buf[0x10:0x30])
	}
	return records, nil
}
