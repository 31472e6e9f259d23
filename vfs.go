// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

// VFSOpener opens the content of a virtual file for copying into a
// RomFS image. The returned Stream is closed by the writer once its
// bytes have been copied out.
type VFSOpener func() (Stream, error)

// VFSFile is a single file of an in-memory directory tree handed to
// WriteRomFS. Size must match the number of bytes Open's stream
// yields.
type VFSFile struct {
	Name string
	Size int64
	Open VFSOpener
}

// VFSDir is a directory of an in-memory tree handed to WriteRomFS. The
// root directory's Name is ignored.
type VFSDir struct {
	Name  string
	Dirs  []*VFSDir
	Files []*VFSFile
}

// totals returns the number of directories (including d itself) and
// files found in the subtree rooted at d.
func (d *VFSDir) totals() (dirs, files uint32) {
	dirs, files = 1, uint32(len(d.Files))
	for _, sub := range d.Dirs {
		sd, sf := sub.totals()
		dirs += sd
		files += sf
	}
	return
}
