// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"testing"
)

func buildTicketBytes(titleID uint64, keyIndex uint8, encryptedTitleKey [16]byte) []byte {
	var buf bytes.Buffer
	buf.Write(buildSignatureBytes(SigRSA2048SHA1, bytes.Repeat([]byte{0}, 256), "Root-CA00000003-XS0000000c"))
	buf.Write(make([]byte, 64))

	var fixed [ticketFixedSize]byte
	copy(fixed[0x3F:0x4F], encryptedTitleKey[:])
	binary.BigEndian.PutUint64(fixed[0x5C:], titleID)
	fixed[0x71] = keyIndex
	buf.Write(fixed[:])

	return buf.Bytes()
}

type staticKeysetForTest struct {
	slot KeySlot
	key  [16]byte
}

func (s staticKeysetForTest) CommonKey(slot KeySlot) ([16]byte, bool) {
	if slot == s.slot {
		return s.key, true
	}
	return [16]byte{}, false
}

func TestReadTicketAndDecryptTitleKey(t *testing.T) {
	titleID := uint64(0x0004000000123456)
	commonKey := [16]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}
	titleKey := [16]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0x00}

	block, err := aes.NewCipher(commonKey[:])
	if err != nil {
		t.Fatalf("aes.NewCipher failed: %v", err)
	}
	var iv [16]byte
	binary.BigEndian.PutUint64(iv[0:8], titleID)
	var encrypted [16]byte
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(encrypted[:], titleKey[:])

	raw := buildTicketBytes(titleID, 0, encrypted)
	ticket, err := ReadTicket(newMemStream(raw))
	if err != nil {
		t.Fatalf("ReadTicket failed: %v", err)
	}
	if ticket.TitleID != titleID {
		t.Errorf("TitleID = %#x, want %#x", ticket.TitleID, titleID)
	}
	if ticket.KeyIndex != 0 {
		t.Errorf("KeyIndex = %d, want 0", ticket.KeyIndex)
	}

	ks := staticKeysetForTest{slot: 0, key: commonKey}
	got, err := DecryptTitleKey(ks, ticket)
	if err != nil {
		t.Fatalf("DecryptTitleKey failed: %v", err)
	}
	if got != titleKey {
		t.Errorf("DecryptTitleKey = %x, want %x", got, titleKey)
	}
}

func TestDecryptTitleKeyMissingSlot(t *testing.T) {
	ticket := Ticket{KeyIndex: 5}
	ks := staticKeysetForTest{slot: 0}
	if _, err := DecryptTitleKey(ks, ticket); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
