// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem_test

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

// TestStrUTF16RoundTrip is spec.md §8 scenario 3: setting "Miams" through a
// pinned Str(utf16le) view and checking the exact terminated byte layout.
func TestStrUTF16RoundTrip(t *testing.T) {
	st := typedmem.NewStr(typedmem.StrUTF16LE)
	vm := memvm.New()
	addr, err := vm.Map(16, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(st, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	sv := view.(*typedmem.StrView)
	if err := sv.SetString("Miams"); err != nil {
		t.Fatal(err)
	}
	raw, err := vm.Read(addr, 12)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x4d, 0x00, 0x69, 0x00, 0x61, 0x00, 0x6d, 0x00, 0x73, 0x00, 0x00, 0x00}
	if !bytes.Equal(raw, want) {
		t.Fatalf("raw bytes = % x, want % x", raw, want)
	}
	got, err := sv.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if got != "Miams" {
		t.Fatalf("AsString() = %q, want %q", got, "Miams")
	}
}

// TestStrANSIRoundTrip checks the single-byte ANSI encoding's terminator and
// round trip.
func TestStrANSIRoundTrip(t *testing.T) {
	st := typedmem.NewStr(typedmem.StrANSI)
	vm := memvm.New()
	addr, err := vm.Map(8, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(st, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	sv := view.(*typedmem.StrView)
	if err := sv.SetString("hi"); err != nil {
		t.Fatal(err)
	}
	raw, err := vm.Read(addr, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte{'h', 'i', 0}) {
		t.Fatalf("raw bytes = % x, want 68 69 00", raw)
	}
}

// TestStrMaxBytes checks that a capped Str fails with ErrOverflow when no
// terminator is found within the cap (spec.md §4.6).
func TestStrMaxBytes(t *testing.T) {
	st := typedmem.NewStrMax(typedmem.StrANSI, 4)
	vm := memvm.New()
	addr, err := vm.Map(8, memvm.Read|memvm.Write)
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.Write(addr, []byte{'a', 'b', 'c', 'd', 'e', 'f', 0}); err != nil {
		t.Fatal(err)
	}
	view, err := typedmem.Pin(st, vm, addr)
	if err != nil {
		t.Fatal(err)
	}
	sv := view.(*typedmem.StrView)
	if _, err := sv.AsString(); !errors.Is(err, typedmem.ErrOverflow) {
		t.Fatalf("AsString() past max_bytes with no terminator: error = %v, want ErrOverflow", err)
	}
}

// TestStrUnsizedGuard is spec.md §8 "Unsized guards": Str.Size() always
// fails, so it cannot be auto-allocated.
func TestStrUnsizedGuard(t *testing.T) {
	st := typedmem.NewStr(typedmem.StrANSI)
	if _, ok := st.Size(); ok {
		t.Fatalf("Size() on Str returned ok=true, want false")
	}
	vm := memvm.New()
	if _, err := typedmem.New(st, vm); !errors.Is(err, typedmem.ErrUnsized) {
		t.Fatalf("New(Str, vm) with no address: error = %v, want ErrUnsized", err)
	}
}
