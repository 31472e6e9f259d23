// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// Ticket carries the encrypted per-title key and the identity fields
// needed to decrypt it: which common key slot to use, and the title ID
// that seeds the AES-CBC IV.
type Ticket struct {
	Sig               Signature
	Issuer            string
	ECCPublicKey      [60]byte
	Version           uint8
	CACRLVersion      uint8
	SignerCRLVersion  uint8
	EncryptedTitleKey [16]byte
	TicketID          uint64
	ConsoleID         uint32
	TitleID           uint64
	TicketVersion     uint16
	LicenseType       uint8
	KeyIndex          uint8
	EShopAccountID    uint32
}

const ticketFixedSize = 0xAC

// ReadTicket reads a ticket from rs at its current position.
func ReadTicket(rs Stream) (Ticket, error) {
	var t Ticket

	sig, err := ReadSignature(rs)
	if err != nil {
		return t, err
	}
	t.Sig = sig

	var issuer [64]byte
	if err := ReadExact(rs, issuer[:]); err != nil {
		return t, err
	}
	t.Issuer = cStringFromBytes(issuer[:])

	var buf [ticketFixedSize]byte
	if err := ReadExact(rs, buf[:]); err != nil {
		return t, err
	}

	copy(t.ECCPublicKey[:], buf[0x00:0x3C])
	t.Version = buf[0x3C]
	t.CACRLVersion = buf[0x3D]
	t.SignerCRLVersion = buf[0x3E]
	copy(t.EncryptedTitleKey[:], buf[0x3F:0x4F])
	// buf[0x4F] is reserved.
	t.TicketID = binary.BigEndian.Uint64(buf[0x50:0x58])
	t.ConsoleID = binary.BigEndian.Uint32(buf[0x58:0x5C])
	t.TitleID = binary.BigEndian.Uint64(buf[0x5C:0x64])
	t.TicketVersion = binary.BigEndian.Uint16(buf[0x66:0x68])
	t.LicenseType = buf[0x70]
	t.KeyIndex = buf[0x71]
	t.EShopAccountID = binary.BigEndian.Uint32(buf[0x9C:0xA0])

	return t, nil
}

// DecryptTitleKey recovers the 16-byte title key carried by t, by
// AES-CBC decrypting its encrypted title key under the common key
// selected by t.KeyIndex, with an IV formed from the title ID in
// big-endian, zero-padded to 16 bytes.
func DecryptTitleKey(ks Keyset, t Ticket) ([16]byte, error) {
	var key [16]byte

	common, ok := ks.CommonKey(KeySlot(t.KeyIndex))
	if !ok {
		return key, ErrNotFound
	}

	block, err := aes.NewCipher(common[:])
	if err != nil {
		return key, err
	}

	var iv [16]byte
	binary.BigEndian.PutUint64(iv[0:8], t.TitleID)

	mode := cipher.NewCBCDecrypter(block, iv[:])
	mode.CryptBlocks(key[:], t.EncryptedTitleKey[:])
	return key, nil
}
