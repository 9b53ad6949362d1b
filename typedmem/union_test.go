// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem_test

import (
	"testing"

	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

// TestUnionAliasing checks spec.md §8 "Union aliasing": a Union's size is the
// max of its members' sizes, and a write through one member is visible
// through any other member whose bytes overlap.
func TestUnionAliasing(t *testing.T) {
	ut := typedmem.MustUnion("U", []typedmem.FieldDecl{
		{Name: "a", Type: typedmem.MustNum("<B")},
		{Name: "b", Type: typedmem.MustNum("<H")},
	})
	n, ok := ut.Size()
	if !ok || n != 2 {
		t.Fatalf("Size() = (%d, %v), want (2, true)", n, ok)
	}

	vm := memvm.New()
	addr, err := vm.Map(2, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(ut, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	uv := view.(*typedmem.UnionView)

	if err := uv.SetField("b", uint16(0x1234)); err != nil {
		t.Fatal(err)
	}
	a, err := uv.Field("a")
	if err != nil {
		t.Fatal(err)
	}
	// Little-endian 0x1234's low byte is 0x34.
	if a.(uint8) != 0x34 {
		t.Fatalf("Field(%q) after SetField(%q, 0x1234) = %#x, want 0x34", "a", "b", a)
	}

	if err := uv.SetField("a", uint8(0xff)); err != nil {
		t.Fatal(err)
	}
	b, err := uv.Field("b")
	if err != nil {
		t.Fatal(err)
	}
	if b.(uint16) != 0x12ff {
		t.Fatalf("Field(%q) after SetField(%q, 0xff) = %#x, want 0x12ff", "b", "a", b)
	}
}

// TestCastThroughUnionMemory is spec.md §8 scenario 2: casting the same
// address between two differently-shaped structs and observing the byte
// overlap each way.
func TestCastThroughUnionMemory(t *testing.T) {
	dataArray := typedmem.MustStruct("DataArray", []typedmem.FieldDecl{
		{Name: "val1", Type: typedmem.MustNum("<B")},
		{Name: "val2", Type: typedmem.MustNum("<B")},
		{Name: "arrayptr", Type: typedmem.MustPtr("<I", typedmem.MustSizedArrayType(typedmem.MustNum("<B"), 16))},
		{Name: "array", Type: typedmem.MustSizedArrayType(typedmem.MustNum("<B"), 16)},
	})
	dataStr := typedmem.MustStruct("DataStr", []typedmem.FieldDecl{
		{Name: "valshort", Type: typedmem.MustNum("<H")},
		{Name: "data", Type: typedmem.MustPtr("<I", typedmem.NewStr(typedmem.StrANSI))},
	})

	vm := memvm.New()
	addr, err := vm.Map(32, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(dataArray, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	da := view.(*typedmem.StructView)
	if err := da.SetField("val1", uint8(0x34)); err != nil {
		t.Fatal(err)
	}
	if err := da.SetField("val2", uint8(0x12)); err != nil {
		t.Fatal(err)
	}

	strCast, err := da.Cast(dataStr)
	if err != nil {
		t.Fatal(err)
	}
	ds := strCast.(*typedmem.StructView)
	valshort, err := ds.Field("valshort")
	if err != nil {
		t.Fatal(err)
	}
	if valshort.(uint16) != 0x1234 {
		t.Fatalf("DataStr.valshort = %#x, want 0x1234", valshort)
	}

	if err := ds.SetField("valshort", uint16(0x1122)); err != nil {
		t.Fatal(err)
	}
	arrayCast, err := ds.Cast(dataArray)
	if err != nil {
		t.Fatal(err)
	}
	da2 := arrayCast.(*typedmem.StructView)
	val1, err := da2.Field("val1")
	if err != nil {
		t.Fatal(err)
	}
	val2, err := da2.Field("val2")
	if err != nil {
		t.Fatal(err)
	}
	if val1.(uint8) != 0x22 || val2.(uint8) != 0x11 {
		t.Fatalf("DataArray.val1,val2 = %#x,%#x, want 0x22,0x11", val1, val2)
	}
}
