// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

// KeySlot identifies a common key slot the host's keyset is expected to
// supply, selected by a ticket's key_index. Keyset supplies common keys
// only; it has no slot for any other key.
type KeySlot uint8

// Keyset is the host-supplied key material this module consumes. Key
// derivation from scratch is out of scope; the host is responsible for
// sourcing and decrypting its own key material ahead of time.
type Keyset interface {
	// CommonKey returns the 16-byte AES common key for slot, used to
	// decrypt a ticket's encrypted title key.
	CommonKey(slot KeySlot) ([16]byte, bool)
}

// StaticKeyset is a Keyset backed by an in-memory map, sufficient for
// tests and for hosts that load key material once at startup.
type StaticKeyset struct {
	commonKeys map[KeySlot][16]byte
}

// NewStaticKeyset returns an empty StaticKeyset.
func NewStaticKeyset() *StaticKeyset {
	return &StaticKeyset{commonKeys: make(map[KeySlot][16]byte)}
}

// SetCommonKey installs the common key for slot.
func (k *StaticKeyset) SetCommonKey(slot KeySlot, key [16]byte) {
	k.commonKeys[slot] = key
}

// CommonKey implements Keyset.
func (k *StaticKeyset) CommonKey(slot KeySlot) ([16]byte, bool) {
	key, ok := k.commonKeys[slot]
	return key, ok
}
