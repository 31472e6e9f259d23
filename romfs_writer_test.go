// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"testing"
)

func memFile(name string, content []byte) *VFSFile {
	return &VFSFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (Stream, error) { return newMemStream(content), nil },
	}
}

func buildTestVFS() *VFSDir {
	return &VFSDir{
		Files: []*VFSFile{
			memFile("readme.txt", []byte("hello, world")),
			memFile("icon.bin", bytes.Repeat([]byte{0x7E}, 37)),
		},
		Dirs: []*VFSDir{
			{
				Name: "romfs",
				Files: []*VFSFile{
					memFile("data.bin", bytes.Repeat([]byte{0x01}, 4096+5)),
				},
				Dirs: []*VFSDir{
					{Name: "nested", Files: []*VFSFile{memFile("deep.txt", []byte("deep"))}},
				},
			},
		},
	}
}

func TestWriteAndReadRomFSRoundTrip(t *testing.T) {
	root := buildTestVFS()

	ws := &bufWriter{}
	if err := WriteRomFS(root, ws); err != nil {
		t.Fatalf("WriteRomFS failed: %v", err)
	}

	rs := newMemStream(ws.buf.Bytes())
	reader, err := OpenRomFSReader(rs)
	if err != nil {
		t.Fatalf("OpenRomFSReader failed: %v", err)
	}

	info, err := reader.GetInfo("/readme.txt")
	if err != nil {
		t.Fatalf("GetInfo(/readme.txt) failed: %v", err)
	}
	if info.Type != RomFSFile || info.Name() != "readme.txt" {
		t.Fatalf("GetInfo(/readme.txt) = %+v", info)
	}
	sv, err := reader.OpenAsSubview(info)
	if err != nil {
		t.Fatalf("OpenAsSubview failed: %v", err)
	}
	got := make([]byte, info.FileSize)
	if err := ReadExact(sv, got); err != nil {
		t.Fatalf("reading file content failed: %v", err)
	}
	if string(got) != "hello, world" {
		t.Fatalf("file content = %q, want %q", got, "hello, world")
	}

	deepInfo, err := reader.GetInfo("/romfs/nested/deep.txt")
	if err != nil {
		t.Fatalf("GetInfo(/romfs/nested/deep.txt) failed: %v", err)
	}
	if deepInfo.Type != RomFSFile {
		t.Fatalf("nested file not found, got %+v", deepInfo)
	}

	dirInfo, err := reader.GetInfo("/romfs")
	if err != nil {
		t.Fatalf("GetInfo(/romfs) failed: %v", err)
	}
	if dirInfo.Type != RomFSDir {
		t.Fatalf("GetInfo(/romfs) = %+v, want a directory", dirInfo)
	}

	if _, err := reader.GetInfo("/does/not/exist"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRomFSIteratorListsAllChildren(t *testing.T) {
	root := buildTestVFS()
	ws := &bufWriter{}
	if err := WriteRomFS(root, ws); err != nil {
		t.Fatalf("WriteRomFS failed: %v", err)
	}

	reader, err := OpenRomFSReader(newMemStream(ws.buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenRomFSReader failed: %v", err)
	}

	rootInfo, err := reader.GetInfo("/")
	if err != nil {
		t.Fatalf("GetInfo(/) failed: %v", err)
	}

	names := map[string]bool{}
	it := reader.Iterate(rootInfo)
	for {
		ent, ok := it.Next()
		if !ok {
			break
		}
		names[ent.Name()] = true
	}

	for _, want := range []string{"readme.txt", "icon.bin", "romfs"} {
		if !names[want] {
			t.Errorf("root directory listing missing %q: %v", want, names)
		}
	}
}

func TestRomFSIteratorOnFileIsEmpty(t *testing.T) {
	root := buildTestVFS()
	ws := &bufWriter{}
	if err := WriteRomFS(root, ws); err != nil {
		t.Fatalf("WriteRomFS failed: %v", err)
	}
	reader, err := OpenRomFSReader(newMemStream(ws.buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenRomFSReader failed: %v", err)
	}
	fileInfo, err := reader.GetInfo("/readme.txt")
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	it := reader.Iterate(fileInfo)
	if _, ok := it.Next(); ok {
		t.Errorf("Iterate on a file entry should yield no children")
	}
}
