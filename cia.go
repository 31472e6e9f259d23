// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"encoding/binary"
)

// ciaSectionAlign is the alignment, in bytes, applied to the running
// offset after every CIA section.
const ciaSectionAlign = 64

// ciaContentIndexSize is the size, in bytes, of the content-presence
// bitmap embedded in the CIA header.
const ciaContentIndexSize = 0x2000

// ciaHeaderSize is the fixed size of the CIA header as it appears on
// disk: the scalar fields plus the content-index bitmap.
const ciaHeaderSize = 0x2020

// CIAHeader is the fixed-size header every CIA package begins with.
type CIAHeader struct {
	Type          uint16
	Version       uint16
	CertChainSize uint32
	TicketSize    uint32
	TMDSize       uint32
	MetaSize      uint32
	ContentSize   uint64
	ContentIndex  [ciaContentIndexSize]byte
}

// ReadCIAHeader reads the fixed CIA header from rs at offset 0.
func ReadCIAHeader(rs Stream) (CIAHeader, error) {
	var h CIAHeader
	var buf [ciaHeaderSize]byte
	if err := ReadAtExact(rs, 0, buf[:]); err != nil {
		return h, err
	}

	headerSize := binary.LittleEndian.Uint32(buf[0x00:0x04])
	_ = headerSize // the leading u32 header-size field is not otherwise used
	h.Type = binary.LittleEndian.Uint16(buf[0x04:0x06])
	h.Version = binary.LittleEndian.Uint16(buf[0x06:0x08])
	h.CertChainSize = binary.LittleEndian.Uint32(buf[0x08:0x0C])
	h.TicketSize = binary.LittleEndian.Uint32(buf[0x0C:0x10])
	h.TMDSize = binary.LittleEndian.Uint32(buf[0x10:0x14])
	h.MetaSize = binary.LittleEndian.Uint32(buf[0x14:0x18])
	h.ContentSize = binary.LittleEndian.Uint64(buf[0x18:0x20])
	copy(h.ContentIndex[:], buf[0x20:0x2020])

	return h, nil
}

// ciaSectionOffsets holds the absolute offset of every CIA section, each aligned up to ciaSectionAlign bytes after the
// previous one, in order: header, cert chain, ticket, tmd, content,
// meta.
type ciaSectionOffsets struct {
	certChain, ticket, tmd, content, meta int64
}

func (h *CIAHeader) sectionOffsets() ciaSectionOffsets {
	var off ciaSectionOffsets
	cur := int64(alignUp(ciaHeaderSize, ciaSectionAlign))
	off.certChain = cur
	cur = alignUp(cur+int64(h.CertChainSize), ciaSectionAlign)
	off.ticket = cur
	cur = alignUp(cur+int64(h.TicketSize), ciaSectionAlign)
	off.tmd = cur
	cur = alignUp(cur+int64(h.TMDSize), ciaSectionAlign)
	off.content = cur
	cur = alignUp(cur+int64(h.ContentSize), ciaSectionAlign)
	off.meta = cur
	return off
}

// OpenCertChain opens a Subview over the certificate chain section.
func (h *CIAHeader) OpenCertChain(rs Stream) *Subview {
	off := h.sectionOffsets()
	return NewSubview(rs, off.certChain, int64(h.CertChainSize))
}

// OpenTicket opens a Subview over the ticket section.
func (h *CIAHeader) OpenTicket(rs Stream) *Subview {
	off := h.sectionOffsets()
	return NewSubview(rs, off.ticket, int64(h.TicketSize))
}

// OpenTMD opens a Subview over the TMD section.
func (h *CIAHeader) OpenTMD(rs Stream) *Subview {
	off := h.sectionOffsets()
	return NewSubview(rs, off.tmd, int64(h.TMDSize))
}

// OpenMeta opens a Subview over the meta section, or returns
// ErrNotFound if the CIA carries no meta section.
func (h *CIAHeader) OpenMeta(rs Stream) (*Subview, error) {
	if h.MetaSize == 0 {
		return nil, ErrNotFound
	}
	off := h.sectionOffsets()
	return NewSubview(rs, off.meta, int64(h.MetaSize)), nil
}

// contentBase returns the absolute offset of the content section.
func (h *CIAHeader) contentBase() int64 {
	return h.sectionOffsets().content
}

// ForEachContentIndex calls fn for every content index present in the
// header's bitmap, in ascending order. Bit k of the bitmap lives at
// byte k/8, bit position (7 - k%8) from the MSB.
func (h *CIAHeader) ForEachContentIndex(fn func(index uint16)) {
	for i := 0; i < ciaContentIndexSize; i++ {
		b := h.ContentIndex[i]
		if b == 0 {
			continue
		}
		for j := 7; j >= 0; j-- {
			if b&(1<<uint(j)) != 0 {
				fn(uint16(i*8 + (7 - j)))
			}
		}
	}
}

// ContentIndices returns the sorted ascending list of content indices
// present in the header's bitmap.
func (h *CIAHeader) ContentIndices() []uint16 {
	var out []uint16
	h.ForEachContentIndex(func(index uint16) {
		out = append(out, index)
	})
	return out
}

// HasContentIndex reports whether index is marked present in the
// bitmap.
func (h *CIAHeader) HasContentIndex(index uint16) bool {
	byteIdx := index / 8
	bitFromMSB := 7 - (index % 8)
	return h.ContentIndex[byteIdx]&(1<<bitFromMSB) != 0
}

// ciaMetaDependencyListSize is the size, in bytes, of a CIA meta
// section's leading title-ID dependency list.
const ciaMetaDependencyListSize = 0x180

// ciaMetaDependencyCount is the number of title-ID slots in the
// dependency list (0 marks an unused slot).
const ciaMetaDependencyCount = ciaMetaDependencyListSize / 8

// ciaMetaReservedSize separates the core version field from the
// trailing SMDH icon payload.
const ciaMetaReservedSize = 0x180

// ciaMetaIconOffset is the offset of the embedded SMDH icon within a
// CIA meta section.
const ciaMetaIconOffset = ciaMetaDependencyListSize + 4 + ciaMetaReservedSize

// CIAMeta is the decoded, fixed-size header of a CIA's optional meta
// section: the list of titles this one depends on and the system core
// version it was built against. The trailing SMDH icon payload is left
// unparsed; IconOffset locates it within the section a caller already
// holds via CIAHeader.OpenMeta.
type CIAMeta struct {
	DependencyList [ciaMetaDependencyCount]uint64
	CoreVersion    uint32
	IconOffset     int64
}

// ReadCIADependencyList decodes the dependency list and core version
// from the start of a CIA's meta section, leaving the larger SMDH icon
// payload for the caller to read separately from sv at IconOffset.
func ReadCIADependencyList(sv *Subview) (CIAMeta, error) {
	var m CIAMeta
	var head [ciaMetaDependencyListSize + 4]byte
	if err := ReadAtExact(sv, 0, head[:]); err != nil {
		return m, err
	}
	for i := 0; i < ciaMetaDependencyCount; i++ {
		m.DependencyList[i] = binary.LittleEndian.Uint64(head[i*8:])
	}
	m.CoreVersion = binary.LittleEndian.Uint32(head[ciaMetaDependencyListSize:])
	m.IconOffset = ciaMetaIconOffset
	return m, nil
}
