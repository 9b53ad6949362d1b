// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem_test

import (
	"testing"

	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

// TestRoundTrip checks the universal round-trip property (spec.md §8):
// T.Unpack(T.Pack(v)) == v, and T.Get(vm, a) after T.Set(vm, a, v) returns v.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  typedmem.Type
		val  any
	}{
		{"num uint8", typedmem.MustNum("<B"), uint8(0x42)},
		{"num int16 be", typedmem.MustNum(">h"), int16(-1234)},
		{"num uint32 le", typedmem.MustNum("<I"), uint32(0xdeadbeef)},
		{"num float64", typedmem.MustNum("<d"), float64(3.5)},
		{"ptr width 4", typedmem.MustPtr("<I", typedmem.Void), typedmem.Addr(0x1000)},
		{"ptr width 8", typedmem.MustPtr("<Q", typedmem.Void), typedmem.Addr(0x1000)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tc.typ.Pack(tc.val)
			if err != nil {
				t.Fatalf("Pack(%v) error: %v", tc.val, err)
			}
			got, err := tc.typ.Unpack(raw)
			if err != nil {
				t.Fatalf("Unpack() error: %v", err)
			}
			if got != tc.val {
				t.Fatalf("Unpack(Pack(%v)) = %v, want %v", tc.val, got, tc.val)
			}

			vm := memvm.New()
			addr, err := vm.Map(int64(len(raw)), memvm.Read|memvm.Write)
			if err != nil {
				t.Fatalf("Map() error: %v", err)
			}
			if err := tc.typ.Set(vm, addr, tc.val); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			got, err = tc.typ.Get(vm, addr)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got != tc.val {
				t.Fatalf("Get() after Set(%v) = %v, want %v", tc.val, got, tc.val)
			}
		})
	}
}

// TestRawTuple checks Raw's multi-value pack/unpack round trip.
func TestRawTuple(t *testing.T) {
	rt := typedmem.MustRaw("<BHI")
	in := []any{uint8(1), uint16(2), uint32(3)}
	raw, err := rt.Pack(in)
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	if len(raw) != 7 {
		t.Fatalf("len(Pack()) = %d, want 7 (1+2+4)", len(raw))
	}
	out, err := rt.Unpack(raw)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	got := out.([]any)
	for i, v := range in {
		if got[i] != v {
			t.Fatalf("Unpack(Pack())[%d] = %v, want %v", i, got[i], v)
		}
	}
}

// TestPointerWidth checks Ptr's size is its own format width, independent of
// the target (spec.md §8 "Pointer width").
func TestPointerWidth(t *testing.T) {
	target := typedmem.MustNum("<Q")
	tests := []struct {
		fmtStr string
		want   int64
	}{
		{"<I", 4},
		{"<Q", 8},
	}
	for _, tc := range tests {
		p := typedmem.MustPtr(tc.fmtStr, target)
		n, ok := p.Size()
		if !ok || n != tc.want {
			t.Fatalf("Ptr(%q, Num(<Q)).Size() = (%d, %v), want (%d, true)", tc.fmtStr, n, ok, tc.want)
		}
	}
}
