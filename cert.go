// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"encoding/binary"
	"os"
	"path/filepath"
)

// CertType identifies the key kind a certificate payload carries.
type CertType uint32

// The closed set of certificate key kinds, matching the wire values
// documented for the console's certificate format.
const (
	CertRSA4096 CertType = 0x4
	CertRSA2048 CertType = 0x5
	CertECDSA   CertType = 0x6
)

// Certificate payload sizes and trailing padding, indexed by CertType.
const (
	certPayloadRSA4096 = 0x204
	certPadRSA4096     = 0x34
	certPayloadRSA2048 = 0x104
	certPadRSA2048     = 0x34
	certPayloadECDSA   = 0x3C
	certPadECDSA       = 0x3C
)

// Certificate is one entry of a certificate chain: a signature over the
// certificate itself, the key type and name it vouches for, an
// expiration timestamp, and the raw key payload.
type Certificate struct {
	Sig        Signature
	Type       CertType
	Name       string
	Expiration uint32
	Payload    []byte // raw, type-specific; see Modulus/Exponent
}

// Modulus returns the big-endian RSA modulus embedded in an RSA
// certificate's payload, or nil for a non-RSA certificate.
func (c *Certificate) Modulus() []byte {
	switch c.Type {
	case CertRSA2048:
		return c.Payload[0:256]
	case CertRSA4096:
		return c.Payload[0:512]
	default:
		return nil
	}
}

// Exponent returns the big-endian RSA public exponent embedded in an
// RSA certificate's payload, or nil for a non-RSA certificate.
func (c *Certificate) Exponent() []byte {
	switch c.Type {
	case CertRSA2048:
		return c.Payload[256:260]
	case CertRSA4096:
		return c.Payload[512:516]
	default:
		return nil
	}
}

// Chain is an ordered sequence of certificates, built up via Scan or
// ReadCertChain.
type Chain struct {
	Certs []Certificate
}

// ReadCertChain reads every certificate record from rs, from its current
// size() worth of bytes starting at offset 0, returning them as a new
// Chain (extend=false) or appending onto dst's existing certs
// (extend=true).
func ReadCertChain(rs Stream, dst *Chain, extend bool) error {
	if err := rs.SeekAbs(0); err != nil {
		return err
	}
	size, err := rs.Size()
	if err != nil {
		return err
	}

	if !extend {
		dst.Certs = dst.Certs[:0]
	}
	origLen := len(dst.Certs)

	for {
		pos, err := rs.Tell()
		if err != nil {
			return err
		}
		if pos == size {
			break
		}

		cert, err := readOneCert(rs)
		if err != nil {
			dst.Certs = dst.Certs[:origLen]
			return err
		}
		dst.Certs = append(dst.Certs, cert)
	}
	return nil
}

func readOneCert(rs Stream) (Certificate, error) {
	var cert Certificate

	sig, err := ReadSignature(rs)
	if err != nil {
		return cert, err
	}
	cert.Sig = sig

	var head [0x48 + 8]byte
	if err := ReadExact(rs, head[:]); err != nil {
		return cert, err
	}
	cert.Type = CertType(binary.BigEndian.Uint32(head[0x00:0x04]))
	cert.Name = cStringFromBytes(head[0x04:0x44])
	cert.Expiration = binary.LittleEndian.Uint32(head[0x44:0x48])
	payloadPrefix := head[0x48:0x50]

	var payloadSize, padSize int
	switch cert.Type {
	case CertRSA2048:
		payloadSize, padSize = certPayloadRSA2048-8, certPadRSA2048
	case CertRSA4096:
		payloadSize, padSize = certPayloadRSA4096-8, certPadRSA4096
	case CertECDSA:
		payloadSize, padSize = certPayloadECDSA-8, certPadECDSA
	default:
		return cert, ErrInvalidCert
	}

	rest := make([]byte, payloadSize+padSize)
	if err := ReadExact(rs, rest); err != nil {
		return cert, err
	}

	cert.Payload = make([]byte, 8+payloadSize)
	copy(cert.Payload[0:8], payloadPrefix)
	copy(cert.Payload[8:], rest[:payloadSize])

	return cert, nil
}

// wellKnownCertFiles are the support files scanned by Scan, in order.
// Missing files are silently skipped; an individual parse failure does
// not abort the scan of the remaining files.
var wellKnownCertFiles = []string{
	"CA00000003-CP0000000b.bin", // used for TMDs
	"CA00000003-XS0000000c.bin", // used for tickets
	"CA00000004-CP00000009.bin", // used for TMDs (developer)
	"CA00000004-XS0000000a.bin", // used for tickets (developer)
	"cert_bundle.bin",           // combination of all certificates
}

// Scan populates chain by reading every well-known certificate file
// found under dir. A missing file is skipped; a file that fails to
// parse is also skipped, so that one corrupt support file does not
// prevent the rest from loading.
func Scan(dir string, chain *Chain) {
	chain.Certs = chain.Certs[:0]
	extend := false
	for _, name := range wellKnownCertFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		ms, err := OpenMappedStream(path)
		if err != nil {
			continue
		}
		_ = ReadCertChain(ms, chain, extend)
		extend = true
		ms.Close()
	}
}

