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

// TestStructLayout checks layout stability (spec.md §8): each field's offset
// is the sum of the sizes of the fields preceding it, and the struct's total
// size is the sum of all field sizes.
func TestStructLayout(t *testing.T) {
	st := typedmem.MustStruct("Header", []typedmem.FieldDecl{
		{Name: "a", Type: typedmem.MustNum("<B")},
		{Name: "b", Type: typedmem.MustNum("<H")},
		{Name: "c", Type: typedmem.MustNum("<I")},
	})

	tests := []struct {
		field string
		want  int64
	}{
		{"a", 0},
		{"b", 1},
		{"c", 3},
	}
	for _, tc := range tests {
		off, err := st.Offset(tc.field)
		if err != nil {
			t.Fatalf("Offset(%q) error: %v", tc.field, err)
		}
		if off != tc.want {
			t.Fatalf("Offset(%q) = %d, want %d", tc.field, off, tc.want)
		}
	}
	n, ok := st.Size()
	if !ok || n != 7 {
		t.Fatalf("Size() = (%d, %v), want (7, true)", n, ok)
	}
}

// TestStructUnknownField checks that field/offset lookup on an undeclared
// name fails with ErrUnknownField (spec.md §4.3).
func TestStructUnknownField(t *testing.T) {
	st := typedmem.MustStruct("S", []typedmem.FieldDecl{
		{Name: "a", Type: typedmem.MustNum("<B")},
	})
	if _, err := st.Offset("nope"); !errors.Is(err, typedmem.ErrUnknownField) {
		t.Fatalf("Offset(%q) error = %v, want ErrUnknownField", "nope", err)
	}
	vm := memvm.New()
	addr, err := vm.Map(1, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(st, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	sv := view.(*typedmem.StructView)
	if _, err := sv.Field("nope"); !errors.Is(err, typedmem.ErrUnknownField) {
		t.Fatalf("Field(%q) error = %v, want ErrUnknownField", "nope", err)
	}
}

// TestStructFieldRoundTrip checks that setting and reading fields through a
// pinned StructView agrees with the values written.
func TestStructFieldRoundTrip(t *testing.T) {
	st := typedmem.MustStruct("Pair", []typedmem.FieldDecl{
		{Name: "x", Type: typedmem.MustNum("<i")},
		{Name: "y", Type: typedmem.MustNum("<i")},
	})
	vm := memvm.New()
	addr, err := vm.Map(8, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(st, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	sv := view.(*typedmem.StructView)
	if err := sv.SetField("x", int32(-5)); err != nil {
		t.Fatal(err)
	}
	if err := sv.SetField("y", int32(9)); err != nil {
		t.Fatal(err)
	}
	x, err := sv.Field("x")
	if err != nil {
		t.Fatal(err)
	}
	if x.(int32) != -5 {
		t.Fatalf("Field(%q) = %v, want -5", "x", x)
	}

	if err := sv.SetField("x", map[string]any{}); err == nil {
		t.Fatalf("SetField with wrong shape value unexpectedly succeeded")
	}
}

// TestSelfResolution checks that a Ptr(Self) field inside a struct resolves
// to that struct once it is constructed (spec.md §8 "Self resolution"), and
// that it fails with ErrUnboundSelf before binding.
func TestSelfResolution(t *testing.T) {
	p := typedmem.MustPtr("<I", typedmem.Self)
	if _, err := p.DstType(); !errors.Is(err, typedmem.ErrUnboundSelf) {
		t.Fatalf("DstType() before binding: error = %v, want ErrUnboundSelf", err)
	}

	st := typedmem.MustStruct("S", []typedmem.FieldDecl{
		{Name: "next", Type: p},
	})
	dst, err := p.DstType()
	if err != nil {
		t.Fatalf("DstType() after binding: %v", err)
	}
	if dst != st {
		t.Fatalf("DstType() after binding = %v, want the enclosing struct itself", dst)
	}
}

// TestStructSetView checks that assigning a same-shape StructView copies
// bytes wholesale, and that a shape mismatch fails with ErrShape.
func TestStructSetView(t *testing.T) {
	st := typedmem.MustStruct("Point", []typedmem.FieldDecl{
		{Name: "x", Type: typedmem.MustNum("<B")},
		{Name: "y", Type: typedmem.MustNum("<B")},
	})
	vm := memvm.New()
	a, err := vm.Map(2, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	b, err := vm.Map(2, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	va, err := typedmem.Pin(st, vm, a)
	if err != nil {
		t.Fatal(err)
	}
	vb, err := typedmem.Pin(st, vm, b)
	if err != nil {
		t.Fatal(err)
	}
	sva := va.(*typedmem.StructView)
	if err := sva.SetField("x", uint8(7)); err != nil {
		t.Fatal(err)
	}
	if err := sva.SetField("y", uint8(8)); err != nil {
		t.Fatal(err)
	}
	if err := st.Set(vm, b, sva); err != nil {
		t.Fatalf("Set(view) error: %v", err)
	}
	svb := vb.(*typedmem.StructView)
	y, err := svb.Field("y")
	if err != nil {
		t.Fatal(err)
	}
	if y.(uint8) != 8 {
		t.Fatalf("Field(%q) after struct-to-struct copy = %v, want 8", "y", y)
	}
}
