// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildCertBytes assembles one well-formed on-wire certificate record:
// a signature, then the type/name/expiration header, then a
// type-appropriately sized payload.
func buildCertBytes(certType CertType, name string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(buildSignatureBytes(SigRSA4096SHA1, bytes.Repeat([]byte{0}, 512), ""))

	var head [0x48 + 8]byte
	binary.BigEndian.PutUint32(head[0x00:], uint32(certType))
	copy(head[0x04:0x44], name)
	binary.LittleEndian.PutUint32(head[0x44:0x48], 0xFFFFFFFF)
	copy(head[0x48:0x50], payload[:8])
	buf.Write(head[:])

	var payloadSize, padSize int
	switch certType {
	case CertRSA2048:
		payloadSize, padSize = certPayloadRSA2048-8, certPadRSA2048
	case CertRSA4096:
		payloadSize, padSize = certPayloadRSA4096-8, certPadRSA4096
	case CertECDSA:
		payloadSize, padSize = certPayloadECDSA-8, certPadECDSA
	}
	rest := make([]byte, payloadSize+padSize)
	copy(rest, payload[8:])
	buf.Write(rest)

	return buf.Bytes()
}

func rsaCertPayload(t *testing.T, modulus, exponent []byte, modLen int) []byte {
	t.Helper()
	payload := make([]byte, modLen+4)
	copy(payload[modLen-len(modulus):modLen], modulus)
	copy(payload[modLen+4-len(exponent):], exponent)
	return payload
}

func TestReadCertChain(t *testing.T) {
	payload2048 := rsaCertPayload(t, bytes.Repeat([]byte{0x01}, 256), []byte{0, 1, 0, 1}, 256)
	payload4096 := rsaCertPayload(t, bytes.Repeat([]byte{0x02}, 512), []byte{0, 1, 0, 1}, 512)

	raw := append(buildCertBytes(CertRSA2048, "CP0000000b", payload2048),
		buildCertBytes(CertRSA4096, "CA00000003", payload4096)...)

	var chain Chain
	if err := ReadCertChain(newMemStream(raw), &chain, false); err != nil {
		t.Fatalf("ReadCertChain failed: %v", err)
	}
	if len(chain.Certs) != 2 {
		t.Fatalf("got %d certs, want 2", len(chain.Certs))
	}
	if chain.Certs[0].Type != CertRSA2048 || chain.Certs[0].Name != "CP0000000b" {
		t.Errorf("cert[0] = %+v", chain.Certs[0])
	}
	if chain.Certs[1].Type != CertRSA4096 || chain.Certs[1].Name != "CA00000003" {
		t.Errorf("cert[1] = %+v", chain.Certs[1])
	}
	if !bytes.Equal(chain.Certs[0].Modulus(), bytes.Repeat([]byte{0x01}, 256)) {
		t.Errorf("cert[0].Modulus() mismatch")
	}
}

func TestReadCertChainExtend(t *testing.T) {
	payload := rsaCertPayload(t, bytes.Repeat([]byte{0x03}, 256), []byte{0, 1, 0, 1}, 256)
	raw := buildCertBytes(CertRSA2048, "first", payload)

	var chain Chain
	if err := ReadCertChain(newMemStream(raw), &chain, false); err != nil {
		t.Fatalf("ReadCertChain failed: %v", err)
	}
	raw2 := buildCertBytes(CertRSA2048, "second", payload)
	if err := ReadCertChain(newMemStream(raw2), &chain, true); err != nil {
		t.Fatalf("ReadCertChain extend failed: %v", err)
	}
	if len(chain.Certs) != 2 {
		t.Fatalf("got %d certs after extend, want 2", len(chain.Certs))
	}

	if err := ReadCertChain(newMemStream(raw2), &chain, false); err != nil {
		t.Fatalf("ReadCertChain replace failed: %v", err)
	}
	if len(chain.Certs) != 1 {
		t.Fatalf("got %d certs after replace, want 1", len(chain.Certs))
	}
}

func TestResolveIssuer(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Root-CA00000003-CP0000000b", "CP0000000b"},
		{"NoHyphen", "NoHyphen"},
		{"Root-CA00000003", "CA00000003"},
	}
	for _, tt := range tests {
		if got := resolveIssuer(tt.in); got != tt.want {
			t.Errorf("resolveIssuer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
