// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem_test

import (
	"errors"
	"testing"

	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

// TestBitFieldRoundTrip is spec.md §8's bitfield round-trip property plus
// scenario 4: BitField(Num("B"), [("f1",2),("f2",4),("f3",1)]) memset to 0,
// set f2=2, then f1=5 (truncated to 2 bits: 5&3=1); expect f1==1, f2==2,
// f3==0, raw byte 0b00001001 == 0x09.
func TestBitFieldRoundTrip(t *testing.T) {
	num := typedmem.MustNum("<B")
	bf := typedmem.MustBitField(num, []typedmem.BitFieldMember{
		{Name: "f1", Bits: 2},
		{Name: "f2", Bits: 4},
		{Name: "f3", Bits: 1},
	})

	vm := memvm.New()
	addr, err := vm.Map(1, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(bf, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	uv := view.(*typedmem.UnionView)

	if err := uv.Memset(0); err != nil {
		t.Fatal(err)
	}
	if err := uv.SetField("f2", uint64(2)); err != nil {
		t.Fatal(err)
	}
	if err := uv.SetField("f1", uint64(5)); err != nil {
		t.Fatal(err)
	}

	f1, err := uv.Field("f1")
	if err != nil {
		t.Fatal(err)
	}
	if f1.(uint64) != 1 {
		t.Fatalf("f1 = %d, want 1 (5 truncated to 2 bits)", f1)
	}
	f2, err := uv.Field("f2")
	if err != nil {
		t.Fatal(err)
	}
	if f2.(uint64) != 2 {
		t.Fatalf("f2 = %d, want 2", f2)
	}
	f3, err := uv.Field("f3")
	if err != nil {
		t.Fatal(err)
	}
	if f3.(uint64) != 0 {
		t.Fatalf("f3 = %d, want 0 (untouched)", f3)
	}

	raw, err := vm.Read(addr, 1)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != 0x09 {
		t.Fatalf("backing byte = %#02x, want 0x09", raw[0])
	}
}

// TestBitFieldOverflow checks that a BitField whose member widths exceed the
// backing Num's bit width fails at construction with ErrOverflow (spec.md
// §4.5).
func TestBitFieldOverflow(t *testing.T) {
	num := typedmem.MustNum("<B")
	_, err := typedmem.NewBitField(num, []typedmem.BitFieldMember{
		{Name: "a", Bits: 5},
		{Name: "b", Bits: 5},
	})
	if !errors.Is(err, typedmem.ErrOverflow) {
		t.Fatalf("NewBitField with 10 bits over an 8-bit backing Num: error = %v, want ErrOverflow", err)
	}
}
