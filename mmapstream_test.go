// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestMappedStreamReadAndSeek(t *testing.T) {
	content := bytes.Repeat([]byte("mapped-content-"), 256)
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ms, err := OpenMappedStream(path)
	if err != nil {
		t.Fatalf("OpenMappedStream failed: %v", err)
	}
	defer ms.Close()

	if size, err := ms.Size(); err != nil || size != int64(len(content)) {
		t.Fatalf("Size() = %d, %v; want %d, nil", size, err, len(content))
	}

	got := make([]byte, len(content))
	if err := ReadExact(ms, got); err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("read content did not match")
	}

	if err := ms.SeekAbs(15); err != nil {
		t.Fatalf("SeekAbs failed: %v", err)
	}
	chunk := make([]byte, 15)
	if err := ReadExact(ms, chunk); err != nil {
		t.Fatalf("ReadExact after seek failed: %v", err)
	}
	if !bytes.Equal(chunk, content[15:30]) {
		t.Fatalf("read after seek = %q, want %q", chunk, content[15:30])
	}

	if err := ms.SeekAbs(int64(len(content)) + 1000); err != nil {
		t.Fatalf("SeekAbs past end failed: %v", err)
	}
	n, err := ms.Read(make([]byte, 10))
	if n != 0 || err != nil {
		t.Fatalf("Read past end = %d, %v; want 0, nil", n, err)
	}
}

func TestOpenMappedStreamMissingFile(t *testing.T) {
	if _, err := OpenMappedStream(filepath.Join(t.TempDir(), "does-not-exist.bin")); err == nil {
		t.Fatalf("expected an error opening a nonexistent file")
	}
}
