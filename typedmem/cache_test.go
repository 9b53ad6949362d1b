// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem_test

import (
	"testing"

	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

// TestCacheIdentity is spec.md §8 scenario 6: declaring the same-named,
// same-shaped struct in two independent places must collapse to the same
// Intern()'d descriptor, which is what makes pinned views over either one
// behave identically.
func TestCacheIdentity(t *testing.T) {
	newNode := func() typedmem.Type {
		st := typedmem.MustStruct("ListNode", []typedmem.FieldDecl{
			{Name: "next", Type: typedmem.MustPtr("<I", typedmem.Self)},
			{Name: "data", Type: typedmem.MustPtr("<I", typedmem.Void)},
		})
		return typedmem.Intern(st)
	}
	a := newNode()
	b := newNode()
	if a != b {
		t.Fatalf("two independently-declared ListNode structs did not collapse to one Intern()'d descriptor")
	}
	if !a.Equal(b) {
		t.Fatalf("Equal() = false for interned-identical descriptors")
	}
}

// TestPinTypeCache checks the ad-hoc pin() helper (spec.md §6's generic
// "pin(descriptor)"): two calls with Equal fields return the same wrapper
// struct identity, and the synthesized field is reachable as "value".
func TestPinTypeCache(t *testing.T) {
	a := typedmem.PinType(typedmem.MustNum("<I"))
	b := typedmem.PinType(typedmem.MustNum("<I"))
	if a != b {
		t.Fatalf("PinType() with Equal fields returned distinct descriptors")
	}

	vm := memvm.New()
	addr, err := vm.Map(4, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(a, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	sv := view.(*typedmem.StructView)
	if err := sv.SetField("value", uint32(7)); err != nil {
		t.Fatal(err)
	}
	got, err := sv.Field("value")
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint32) != 7 {
		t.Fatalf("Field(%q) = %v, want 7", "value", got)
	}
}

// TestArrayTypeInterning checks that NewSizedArrayType also canonicalizes
// through Intern for equal (elem, length) arguments.
func TestArrayTypeInterning(t *testing.T) {
	a := typedmem.MustSizedArrayType(typedmem.MustNum("<B"), 16)
	b := typedmem.MustSizedArrayType(typedmem.MustNum("<B"), 16)
	if a != b {
		t.Fatalf("NewSizedArrayType() with equal arguments returned distinct descriptors")
	}

	c := typedmem.MustSizedArrayType(typedmem.MustNum("<B"), 17)
	if a == c {
		t.Fatalf("NewSizedArrayType() with different lengths returned the same descriptor")
	}

	// An array of a still-unbound Self-carrying Ptr must not be interned:
	// two different enclosing structs would otherwise collide on one cache
	// entry and race to bind it. The arrays are sized, since a struct
	// field must have a static size.
	ptr1 := typedmem.MustPtr("<I", typedmem.Self)
	ptr2 := typedmem.MustPtr("<I", typedmem.Self)
	arr1 := typedmem.MustSizedArrayType(ptr1, 2)
	arr2 := typedmem.MustSizedArrayType(ptr2, 2)
	if arr1 == arr2 {
		t.Fatalf("Array(Ptr(Self)) was interned despite carrying an unbound Self")
	}

	s1 := typedmem.MustStruct("Tree1", []typedmem.FieldDecl{{Name: "children", Type: arr1}})
	s2 := typedmem.MustStruct("Tree2", []typedmem.FieldDecl{{Name: "children", Type: arr2}})
	dst1, err := ptr1.DstType()
	if err != nil {
		t.Fatal(err)
	}
	dst2, err := ptr2.DstType()
	if err != nil {
		t.Fatal(err)
	}
	if dst1 != typedmem.Type(s1) {
		t.Fatalf("ptr1's Self resolved to %v, want Tree1", dst1)
	}
	if dst2 != typedmem.Type(s2) {
		t.Fatalf("ptr2's Self resolved to %v, want Tree2", dst2)
	}
}
