// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"encoding/binary"
	"io"
)

// romfsWriterCtx accumulates the directory and file hash-bucket tables
// and metadata blobs during the first (metadata) pass of WriteRomFS,
// mirroring struct romfs_writer_ctx.
type romfsWriterCtx struct {
	dirHash, fileHash     []uint32
	dirMeta, fileMeta     []byte
	currentFileDataOffset uint64
}

func newRomfsWriterCtx(totalDirs, totalFiles uint32) *romfsWriterCtx {
	ctx := &romfsWriterCtx{
		dirHash:  make([]uint32, romfsTableLength(totalDirs)),
		fileHash: make([]uint32, romfsTableLength(totalFiles)),
	}
	for i := range ctx.dirHash {
		ctx.dirHash[i] = Inval
	}
	for i := range ctx.fileHash {
		ctx.fileHash[i] = Inval
	}
	return ctx
}

// addToHashTable links offset into the hash-bucket chain for name
// under parentOffset, appending to the tail of any existing chain.
// nextBucketField locates the NEXTBUCKET word within a record of
// metaTable, relative to that record's own offset.
func addToHashTable(name []uint16, parentOffset, offset uint32, hashTable []uint32, metaTable []byte, nextBucketField uint32) {
	index := romfsHashFunc(name, parentOffset) % uint32(len(hashTable))
	if hashTable[index] == Inval {
		hashTable[index] = offset
		return
	}
	coffset := hashTable[index]
	for {
		next := binary.LittleEndian.Uint32(metaTable[coffset+nextBucketField:])
		if next == Inval {
			break
		}
		coffset = next
	}
	binary.LittleEndian.PutUint32(metaTable[coffset+nextBucketField:], offset)
}

// addToParentDirectory links offset into parentOffset's child list
// (directories via DCHILDREN/SIBLING, files via FCHILDREN/SIBLING),
// appending to the tail of any existing sibling chain. The sibling
// pointer of an existing child always lives in metaTable (a file's or a
// directory's own record), while the parent's child-list head always
// lives in the directory metadata table.
func addToParentDirectory(dirMeta []byte, parentOffset, offset, childrenField uint32, metaTable []byte, siblingField uint32) {
	head := binary.LittleEndian.Uint32(dirMeta[parentOffset+childrenField:])
	if head == Inval {
		binary.LittleEndian.PutUint32(dirMeta[parentOffset+childrenField:], offset)
		return
	}
	coffset := head
	for {
		next := binary.LittleEndian.Uint32(metaTable[coffset+siblingField:])
		if next == Inval {
			break
		}
		coffset = next
	}
	binary.LittleEndian.PutUint32(metaTable[coffset+siblingField:], offset)
}

// writeDirectory appends a new directory metadata record for name
// (empty for the root) under parentOffset, links it into the hash
// table and, unless it is the root, into its parent's child list, and
// returns its offset.
func (ctx *romfsWriterCtx) writeDirectory(name string, parentOffset uint32) (uint32, error) {
	units, err := utf8ToUTF16LE(name)
	if err != nil {
		return 0, err
	}
	nameBytes := len(units) * 2

	metaOffset := uint32(len(ctx.dirMeta))
	addToHashTable(units, parentOffset, metaOffset, ctx.dirHash, ctx.dirMeta, dirOffNextBucket)

	record := make([]byte, dirOffName+alignUpInt(nameBytes, 4))
	binary.LittleEndian.PutUint32(record[dirOffParent:], parentOffset)
	binary.LittleEndian.PutUint32(record[dirOffSibling:], Inval)
	binary.LittleEndian.PutUint32(record[dirOffDChildren:], Inval)
	binary.LittleEndian.PutUint32(record[dirOffFChildren:], Inval)
	binary.LittleEndian.PutUint32(record[dirOffNextBucket:], Inval)
	binary.LittleEndian.PutUint32(record[dirOffNameLen:], uint32(nameBytes))
	putUint16LE(record[dirOffName:], units)

	ctx.dirMeta = append(ctx.dirMeta, record...)

	if name != "" {
		addToParentDirectory(ctx.dirMeta, parentOffset, metaOffset, dirOffDChildren, ctx.dirMeta, dirOffSibling)
	}
	return metaOffset, nil
}

// writeFileMeta appends a new file metadata record for file under
// parentOffset, links it into the hash table and its parent's file
// child list, reserves its data-region slot, and returns its offset.
func (ctx *romfsWriterCtx) writeFileMeta(file *VFSFile, parentOffset uint32) (uint32, error) {
	units, err := utf8ToUTF16LE(file.Name)
	if err != nil {
		return 0, err
	}
	nameBytes := len(units) * 2

	metaOffset := uint32(len(ctx.fileMeta))
	addToHashTable(units, parentOffset, metaOffset, ctx.fileHash, ctx.fileMeta, fileOffNextBucket)

	record := make([]byte, fileOffName+alignUpInt(nameBytes, 4))
	binary.LittleEndian.PutUint32(record[fileOffParent:], parentOffset)
	binary.LittleEndian.PutUint32(record[fileOffSibling:], Inval)
	binary.LittleEndian.PutUint64(record[fileOffOffset:], ctx.currentFileDataOffset)
	binary.LittleEndian.PutUint64(record[fileOffSize:], uint64(file.Size))
	binary.LittleEndian.PutUint32(record[fileOffNextBucket:], Inval)
	binary.LittleEndian.PutUint32(record[fileOffNameLen:], uint32(nameBytes))
	putUint16LE(record[fileOffName:], units)

	ctx.fileMeta = append(ctx.fileMeta, record...)

	addToParentDirectory(ctx.dirMeta, parentOffset, metaOffset, dirOffFChildren, ctx.fileMeta, fileOffSibling)

	ctx.currentFileDataOffset += uint64(file.Size)
	ctx.currentFileDataOffset = uint64(alignUp(int64(ctx.currentFileDataOffset), 16))
	return metaOffset, nil
}

// writeMeta recursively walks dir, writing every file's metadata
// before descending into each subdirectory — the same order the files'
// data bytes are later streamed in.
func (ctx *romfsWriterCtx) writeMeta(dir *VFSDir, parentOffset uint32) error {
	for _, f := range dir.Files {
		if _, err := ctx.writeFileMeta(f, parentOffset); err != nil {
			return err
		}
	}
	for _, d := range dir.Dirs {
		childOffset, err := ctx.writeDirectory(d.Name, parentOffset)
		if err != nil {
			return err
		}
		if err := ctx.writeMeta(d, childOffset); err != nil {
			return err
		}
	}
	return nil
}

// writeFileData streams the content of every file under dir, in the
// same order writeMeta assigned data offsets, padding each to a
// 16-byte boundary.
func writeFileData(ws Writer, dir *VFSDir) error {
	for _, f := range dir.Files {
		stream, err := f.Open()
		if err != nil {
			return err
		}
		copied, err := copyStream(ws, stream)
		stream.Close()
		if err != nil {
			return err
		}
		if pad := alignUpInt(int(copied), 16) - int(copied); pad > 0 {
			if err := ws.Write(make([]byte, pad)); err != nil {
				return err
			}
		}
	}
	for _, d := range dir.Dirs {
		if err := writeFileData(ws, d); err != nil {
			return err
		}
	}
	return nil
}

// copyStream drains src into ws in fixed-size chunks, returning the
// number of bytes copied.
func copyStream(ws Writer, src Stream) (int64, error) {
	var total int64
	buf := make([]byte, 64*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := ws.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// WriteRomFS serializes root as a RomFS image, wrapped in an IVFC hash
// tree container, to ws. The image is built in two passes: first every
// directory and file's metadata is written (assigning hash buckets,
// sibling chains, and file data offsets), then every file's content is
// streamed out in the order those offsets were assigned.
func WriteRomFS(root *VFSDir, ws Writer) error {
	totalDirs, totalFiles := root.totals()
	ctx := newRomfsWriterCtx(totalDirs, totalFiles)

	rootOffset, err := ctx.writeDirectory("", 0)
	if err != nil {
		return err
	}
	if err := ctx.writeMeta(root, rootOffset); err != nil {
		return err
	}

	iw := openIVFCWriter(ws, IVFCBlockSizeRomFS)

	dirHashSize := len(ctx.dirHash) * 4
	fileHashSize := len(ctx.fileHash) * 4

	dirHashOffset := uint32(romfsLevel3MagicSize)
	dirMetaOffset := dirHashOffset + uint32(dirHashSize)
	fileHashOffset := dirMetaOffset + uint32(len(ctx.dirMeta))
	fileMetaOffset := fileHashOffset + uint32(fileHashSize)
	dataOffset := fileMetaOffset + uint32(len(ctx.fileMeta))

	header := make([]byte, romfsLevel3MagicSize)
	binary.LittleEndian.PutUint32(header[0x00:], romfsLevel3MagicSize)
	binary.LittleEndian.PutUint32(header[0x04:], dirHashOffset)
	binary.LittleEndian.PutUint32(header[0x08:], uint32(dirHashSize))
	binary.LittleEndian.PutUint32(header[0x0C:], dirMetaOffset)
	binary.LittleEndian.PutUint32(header[0x10:], uint32(len(ctx.dirMeta)))
	binary.LittleEndian.PutUint32(header[0x14:], fileHashOffset)
	binary.LittleEndian.PutUint32(header[0x18:], uint32(fileHashSize))
	binary.LittleEndian.PutUint32(header[0x1C:], fileMetaOffset)
	binary.LittleEndian.PutUint32(header[0x20:], uint32(len(ctx.fileMeta)))
	binary.LittleEndian.PutUint32(header[0x24:], dataOffset)

	if err := iw.Write(header); err != nil {
		return err
	}
	if err := iw.Write(uint32SliceToBytesLE(ctx.dirHash)); err != nil {
		return err
	}
	if err := iw.Write(ctx.dirMeta); err != nil {
		return err
	}
	if err := iw.Write(uint32SliceToBytesLE(ctx.fileHash)); err != nil {
		return err
	}
	if err := iw.Write(ctx.fileMeta); err != nil {
		return err
	}

	if err := writeFileData(iw, root); err != nil {
		iw.abort()
		return err
	}

	return iw.Close()
}

func alignUpInt(n, align int) int {
	return int(alignUp(int64(n), int64(align)))
}

func putUint16LE(dst []byte, units []uint16) {
	for i, u := range units {
		binary.LittleEndian.PutUint16(dst[2*i:], u)
	}
}

func uint32SliceToBytesLE(vals []uint32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}
