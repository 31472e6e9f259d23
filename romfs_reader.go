// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"encoding/binary"
	"strings"
)

// Directory metadata record layout, relative to the start of a record
// in the directory metadata table.
const (
	dirOffParent     = 0x00
	dirOffSibling    = 0x04
	dirOffDChildren  = 0x08
	dirOffFChildren  = 0x0C
	dirOffNextBucket = 0x10
	dirOffNameLen    = 0x14
	dirOffName       = 0x18
)

// File metadata record layout, relative to the start of a record in
// the file metadata table.
const (
	fileOffParent     = 0x00
	fileOffSibling    = 0x04
	fileOffOffset     = 0x08
	fileOffSize       = 0x10
	fileOffNextBucket = 0x18
	fileOffNameLen    = 0x1C
	fileOffName       = 0x20
)

// RomFSEntryType distinguishes the two kinds of RomFSInfo.
type RomFSEntryType int

const (
	RomFSNone RomFSEntryType = iota
	RomFSFile
	RomFSDir
)

// RomFSInfo describes one directory or file entry resolved from a
// RomFS image. Which of the Dir* / File* fields are meaningful depends
// on Type.
type RomFSInfo struct {
	Type RomFSEntryType

	Parent  uint32
	Sibling uint32

	// Valid when Type == RomFSDir.
	DChildren uint32
	FChildren uint32

	// Valid when Type == RomFSFile.
	FileOffset uint64
	FileSize   uint64

	nameUTF16 []uint16

	offset uint32
}

// Name returns the entry's file name, converted from the on-disk
// UTF-16LE encoding.
func (i RomFSInfo) Name() string {
	return utf16UnitsToUTF8(i.nameUTF16)
}

// RomFSReader holds a RomFS image's four tables fully in memory (they
// are index structures, not file content, so this mirrors the upstream
// reader's eager nnc_init_romfs rather than mmap-style lazy access)
// plus the parent stream file data is read from.
type RomFSReader struct {
	rs     Stream
	header RomFSHeader

	dirHashTab  []uint32
	dirMeta     []byte
	fileHashTab []uint32
	fileMeta    []byte
}

// OpenRomFSReader reads a RomFS image's header and all four of its
// tables from rs. rs must outlive the returned reader.
func OpenRomFSReader(rs Stream) (*RomFSReader, error) {
	header, err := ReadRomFSHeader(rs)
	if err != nil {
		return nil, err
	}

	dirHashRaw := make([]byte, header.DirHash.Length)
	if err := ReadAtExact(rs, header.DirHash.Offset, dirHashRaw); err != nil {
		return nil, err
	}
	fileHashRaw := make([]byte, header.FileHash.Length)
	if err := ReadAtExact(rs, header.FileHash.Offset, fileHashRaw); err != nil {
		return nil, err
	}
	dirMeta := make([]byte, header.DirMeta.Length)
	if err := ReadAtExact(rs, header.DirMeta.Offset, dirMeta); err != nil {
		return nil, err
	}
	fileMeta := make([]byte, header.FileMeta.Length)
	if err := ReadAtExact(rs, header.FileMeta.Offset, fileMeta); err != nil {
		return nil, err
	}

	return &RomFSReader{
		rs:          rs,
		header:      header,
		dirHashTab:  bytesToUint32LE(dirHashRaw),
		dirMeta:     dirMeta,
		fileHashTab: bytesToUint32LE(fileHashRaw),
		fileMeta:    fileMeta,
	}, nil
}

func bytesToUint32LE(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func (r *RomFSReader) fillInfoDir(offset uint32) RomFSInfo {
	d := r.dirMeta[offset:]
	nameLen := binary.LittleEndian.Uint32(d[dirOffNameLen:])
	return RomFSInfo{
		Type:      RomFSDir,
		Parent:    binary.LittleEndian.Uint32(d[dirOffParent:]),
		Sibling:   binary.LittleEndian.Uint32(d[dirOffSibling:]),
		DChildren: binary.LittleEndian.Uint32(d[dirOffDChildren:]),
		FChildren: binary.LittleEndian.Uint32(d[dirOffFChildren:]),
		nameUTF16: le16Slice(d[dirOffName:], nameLen/2),
		offset:    offset,
	}
}

func (r *RomFSReader) fillInfoFile(offset uint32) RomFSInfo {
	f := r.fileMeta[offset:]
	nameLen := binary.LittleEndian.Uint32(f[fileOffNameLen:])
	return RomFSInfo{
		Type:       RomFSFile,
		Parent:     binary.LittleEndian.Uint32(f[fileOffParent:]),
		Sibling:    binary.LittleEndian.Uint32(f[fileOffSibling:]),
		FileOffset: binary.LittleEndian.Uint64(f[fileOffOffset:]),
		FileSize:   binary.LittleEndian.Uint64(f[fileOffSize:]),
		nameUTF16:  le16Slice(f[fileOffName:], nameLen/2),
		offset:     offset,
	}
}

func le16Slice(b []byte, units uint32) []uint16 {
	out := make([]uint16, units)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out
}

func (r *RomFSReader) dirNextBucket(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(r.dirMeta[offset+dirOffNextBucket:])
}

func (r *RomFSReader) dirNameLen(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(r.dirMeta[offset+dirOffNameLen:])
}

func (r *RomFSReader) dirName(offset uint32) []uint16 {
	return le16Slice(r.dirMeta[offset+dirOffName:], r.dirNameLen(offset)/2)
}

func (r *RomFSReader) fileNextBucket(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(r.fileMeta[offset+fileOffNextBucket:])
}

func (r *RomFSReader) fileNameLen(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(r.fileMeta[offset+fileOffNameLen:])
}

func (r *RomFSReader) fileName(offset uint32) []uint16 {
	return le16Slice(r.fileMeta[offset+fileOffName:], r.fileNameLen(offset)/2)
}

// getDirSingleOffset resolves one path component (name, of length len
// UTF-16 units) under parentOffset to a directory metadata offset, or
// Inval if no such directory bucket entry exists.
func (r *RomFSReader) getDirSingleOffset(name []uint16, parentOffset uint32) uint32 {
	tabLen := uint32(len(r.dirHashTab))
	if tabLen == 0 {
		return Inval
	}
	i := romfsHashFunc(name, parentOffset) % tabLen
	offset := r.dirHashTab[i]
	for offset != Inval {
		if r.dirNameLen(offset) == uint32(len(name))*2 && uint16SliceEqual(r.dirName(offset), name) {
			return offset
		}
		offset = r.dirNextBucket(offset)
	}
	return Inval
}

// getFileSingleOffset resolves one path component to a file metadata
// offset, or Inval if no such file bucket entry exists.
func (r *RomFSReader) getFileSingleOffset(name []uint16, parentOffset uint32) uint32 {
	tabLen := uint32(len(r.fileHashTab))
	if tabLen == 0 {
		return Inval
	}
	i := romfsHashFunc(name, parentOffset) % tabLen
	offset := r.fileHashTab[i]
	for offset != Inval {
		if r.fileNameLen(offset) == uint32(len(name))*2 && uint16SliceEqual(r.fileName(offset), name) {
			return offset
		}
		offset = r.fileNextBucket(offset)
	}
	return Inval
}

func uint16SliceEqual(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// getDirOffsetNoFile walks every "/"-separated component of path
// except the last, returning the directory offset the last component
// should be resolved relative to, and that last component's name. An
// empty (root) path returns offset 0 and an empty file name.
func (r *RomFSReader) getDirOffsetNoFile(path string) (parent uint32, fileName string, ok bool) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return 0, "", true
	}

	of := uint32(0)
	rest := path
	for {
		idx := strings.IndexByte(rest, '/')
		if idx < 0 {
			break
		}
		comp := rest[:idx]
		rest = strings.TrimLeft(rest[idx+1:], "/")
		if comp == "" {
			if rest == "" {
				break
			}
			continue
		}
		name, err := utf8ToUTF16LE(comp)
		if err != nil {
			return 0, "", false
		}
		of = r.getDirSingleOffset(name, of)
		if of == Inval {
			return 0, "", false
		}
	}
	return of, rest, true
}

// GetInfo resolves path (slash-separated, always relative to the
// image's root) to a RomFSInfo. It returns ErrNotFound if no directory
// or file exists at that path.
func (r *RomFSReader) GetInfo(path string) (RomFSInfo, error) {
	parentOf, fileName, ok := r.getDirOffsetNoFile(path)
	if !ok {
		return RomFSInfo{}, ErrNotFound
	}
	if fileName == "" {
		return r.fillInfoDir(parentOf), nil
	}

	name, err := utf8ToUTF16LE(fileName)
	if err != nil {
		return RomFSInfo{}, err
	}

	if rof := r.getFileSingleOffset(name, parentOf); rof != Inval {
		return r.fillInfoFile(rof), nil
	}
	if rof := r.getDirSingleOffset(name, parentOf); rof != Inval {
		return r.fillInfoDir(rof), nil
	}
	return RomFSInfo{}, ErrNotFound
}

// OpenAsSubview opens the file content info describes as a Subview
// into the image's data region. info.Type must be RomFSFile.
func (r *RomFSReader) OpenAsSubview(info RomFSInfo) (*Subview, error) {
	if info.Type != RomFSFile {
		return nil, ErrNotAFile
	}
	return NewSubview(r.rs, r.header.DataOffset+int64(info.FileOffset), int64(info.FileSize)), nil
}

// RomFSIterator walks the direct children of a directory: its
// subdirectories first, then its files, matching on-disk sibling-chain
// order.
type RomFSIterator struct {
	r      *RomFSReader
	next   uint32
	inDirs bool
	dir    RomFSInfo
}

// Iterate returns an iterator over dir's direct children. dir.Type must
// be RomFSDir.
func (r *RomFSReader) Iterate(dir RomFSInfo) *RomFSIterator {
	it := &RomFSIterator{r: r, dir: dir}
	if dir.Type != RomFSDir {
		it.next = Inval
		return it
	}
	if dir.DChildren == Inval {
		it.next = dir.FChildren
		it.inDirs = false
	} else {
		it.next = dir.DChildren
		it.inDirs = true
	}
	return it
}

// Next advances the iterator, returning the next child entry and true,
// or the zero RomFSInfo and false once exhausted.
func (it *RomFSIterator) Next() (RomFSInfo, bool) {
	if it.next == Inval {
		return RomFSInfo{}, false
	}
	if it.inDirs {
		ent := it.r.fillInfoDir(it.next)
		it.next = ent.Sibling
		if it.next == Inval {
			it.next = it.dir.FChildren
			it.inDirs = false
		}
		return ent, true
	}
	ent := it.r.fillInfoFile(it.next)
	it.next = ent.Sibling
	return ent, true
}
