// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import (
	"crypto"
	"crypto/rsa"
	_ "crypto/sha1" // registers crypto.SHA1 for rsa.VerifyPKCS1v15
	_ "crypto/sha256"
	"math/big"
	"strings"
)

// resolveIssuer returns the certificate name a signature's issuer
// string refers to: the substring after the last '-', or the whole
// issuer if there is none.
func resolveIssuer(issuer string) string {
	if i := strings.LastIndexByte(issuer, '-'); i >= 0 {
		return issuer[i+1:]
	}
	return issuer
}

// findCert locates the certificate in chain whose name resolves from
// sig's issuer and whose key type matches sig's algorithm family.
func findCert(chain *Chain, sig Signature) (*Certificate, bool) {
	name := resolveIssuer(sig.Issuer)
	wantECDSA := sig.Type.isECDSA()
	for i := range chain.Certs {
		c := &chain.Certs[i]
		if c.Name != name {
			continue
		}
		if wantECDSA {
			if c.Type == CertECDSA {
				return c, true
			}
			continue
		}
		switch c.Type {
		case CertRSA2048:
			if sig.Type == SigRSA2048SHA1 || sig.Type == SigRSA2048SHA256 {
				return c, true
			}
		case CertRSA4096:
			if sig.Type == SigRSA4096SHA1 || sig.Type == SigRSA4096SHA256 {
				return c, true
			}
		}
	}
	return nil, false
}

// newRSAPublicKeyContext constructs an rsa.PublicKey ("PK context") from
// an RSA certificate's embedded big-endian modulus and exponent.
func newRSAPublicKeyContext(cert *Certificate) *rsa.PublicKey {
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(cert.Modulus()),
		E: int(new(big.Int).SetBytes(cert.Exponent()).Int64()),
	}
}

// Verify checks hash against sig using the public key resolved from
// chain. ECDSA certificate verification is unimplemented upstream (see
// DESIGN.md); an ECDSA signature whose certificate would otherwise
// resolve still returns ErrCertNotFound rather than silently accepting.
func Verify(chain *Chain, sig Signature, hash []byte) error {
	if sig.Type.isECDSA() {
		return ErrCertNotFound
	}

	cert, ok := findCert(chain, sig)
	if !ok {
		return ErrCertNotFound
	}

	pub := newRSAPublicKeyContext(cert)

	dsize := SigDataSize(sig.Type)
	sigBytes := sig.Data[:dsize]

	var err error
	if sig.Type.isSHA256() {
		err = rsaVerifyPKCS1v15(pub, crypto.SHA256, hash, sigBytes)
	} else {
		err = rsaVerifyPKCS1v15(pub, crypto.SHA1, hash, sigBytes)
	}
	if err != nil {
		return ErrBadSig
	}
	return nil
}

// rsaVerifyPKCS1v15 is a thin indirection over rsa.VerifyPKCS1v15 kept
// in its own function so the sha1/sha256 import aliasing above stays
// localized.
func rsaVerifyPKCS1v15(pub *rsa.PublicKey, hashID crypto.Hash, hashed, sig []byte) error {
	return rsa.VerifyPKCS1v15(pub, hashID, hashed, sig)
}
