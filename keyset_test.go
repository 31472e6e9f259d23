// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package nnc

import "testing"

func TestStaticKeyset(t *testing.T) {
	ks := NewStaticKeyset()
	if _, ok := ks.CommonKey(0); ok {
		t.Fatalf("CommonKey on empty keyset should report false")
	}

	key := [16]byte{1, 2, 3}
	ks.SetCommonKey(1, key)

	got, ok := ks.CommonKey(1)
	if !ok || got != key {
		t.Fatalf("CommonKey(1) = %v, %v; want %v, true", got, ok, key)
	}
	if _, ok := ks.CommonKey(2); ok {
		t.Fatalf("CommonKey(2) should report false")
	}
}
