// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import (
	"bytes"
	"fmt"
)

// View is a pinned (vm, addr, Type) handle: the base capability every
// pinned view offers, regardless of which Kind its Type has. Concrete
// views add Kind-specific accessors (StructView.Field, PointerView.Deref,
// ArrayView indexing, ...); use a type switch or assertion to reach them,
// the same way the source implementation's PinnedType subclasses add
// methods beyond the PinnedType base.
type View interface {
	VM() VM
	Addr() Addr
	Type() Type

	// Raw returns a copy of the bytes this view's type covers. It fails
	// with ErrUnsized for unsized types (PinnedArray, PinnedStr).
	Raw() ([]byte, error)

	// Memset fills this view's memory with a repeated byte.
	Memset(fill byte) error

	// Cast reinterprets the same (vm, addr) as a different Type.
	Cast(other Type) (View, error)

	// Equal reports whether two views have the same Type and identical
	// bytes; it does not require the same address.
	Equal(other View) bool

	String() string
}

// base is embedded by every concrete View implementation and supplies the
// Kind-independent behavior.
type base struct {
	vm   VM
	addr Addr
	typ  Type
}

func (b *base) VM() VM     { return b.vm }
func (b *base) Addr() Addr { return b.addr }
func (b *base) Type() Type { return b.typ }

func (b *base) size() (int64, error) {
	n, ok := b.typ.Size()
	if !ok {
		return 0, fmt.Errorf("%w: %s has no static size", ErrUnsized, b.typ)
	}
	return n, nil
}

func (b *base) Raw() ([]byte, error) {
	n, err := b.size()
	if err != nil {
		return nil, err
	}
	return b.vm.Read(b.addr, n)
}

func (b *base) Memset(fill byte) error {
	n, err := b.size()
	if err != nil {
		return err
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = fill
	}
	return b.vm.Write(b.addr, buf)
}

func (b *base) Cast(other Type) (View, error) {
	return Pin(other, b.vm, b.addr)
}

func (b *base) Equal(other View) bool {
	if other == nil || !b.typ.Equal(other.Type()) {
		return false
	}
	raw1, err1 := b.Raw()
	raw2, err2 := other.Raw()
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(raw1, raw2)
}

func (b *base) String() string {
	return fmt.Sprintf("%s@%#x", b.typ, uint64(b.addr))
}

// Pin binds t to (vm, addr) and returns the View appropriate for t's Kind.
// Equal-by-CacheKey descriptors always produce the same concrete View
// implementation (there is exactly one per Kind), which is what the
// pinned-type cache (spec.md §4.8) is for: Intern canonicalizes the
// descriptor so that two independently-declared-but-equal schemas compare
// and behave identically once pinned.
func Pin(t Type, vm VM, addr Addr) (View, error) {
	b := base{vm: vm, addr: addr, typ: t}
	switch tt := t.(type) {
	case *NumType, *RawType:
		return &ValueView{base: b}, nil
	case *PtrType:
		return &PointerView{base: b, ptr: tt}, nil
	case *StructType:
		return &StructView{base: b, st: tt}, nil
	case *UnionType:
		return &UnionView{base: b, ut: tt}, nil
	case *BitFieldType:
		return &UnionView{base: b, ut: tt.UnionType}, nil
	case *BitsType:
		return &ValueView{base: b}, nil
	case *ArrayType:
		if tt.length == nil {
			return &ArrayView{base: b, at: tt}, nil
		}
		return &SizedArrayView{ArrayView: ArrayView{base: b, at: tt}}, nil
	case *StrType:
		return &StrView{base: b, st: tt}, nil
	case *VoidType:
		return &VoidView{base: b}, nil
	case *selfMarkerType:
		return nil, ErrUnboundSelf
	default:
		return nil, fmt.Errorf("typedmem: Pin: unhandled Type %T", t)
	}
}

// New allocates room for t (which must be statically sized) using the
// process-wide allocator and pins a view over the result. It is the
// zero-address-argument constructor documented in spec.md §4.9.
func New(t Type, vm VM) (View, error) {
	n, ok := t.Size()
	if !ok {
		return nil, fmt.Errorf("%w: cannot auto-allocate %s", ErrUnsized, t)
	}
	addr, err := alloc(vm, n)
	if err != nil {
		return nil, err
	}
	return Pin(t, vm, addr)
}

// ValueView is the pinned view over a NumType, RawType, or BitsType: a
// scalar with no further structure to navigate, so Get/Set on the
// underlying Type cover everything beyond the base View capabilities.
type ValueView struct {
	base
}

// Get reads and decodes the pinned value.
func (v *ValueView) Get() (any, error) {
	return v.typ.Get(v.vm, v.addr)
}

// Set encodes and writes value at the pinned address.
func (v *ValueView) Set(value any) error {
	return v.typ.Set(v.vm, v.addr, value)
}

// VoidView is the pinned view over Void; it offers no accessors beyond the
// base capabilities, and Raw/Memset fail with ErrUnsized like Void.Get/Set.
type VoidView struct {
	base
}

// PinType generates a one-field wrapper struct around an ad-hoc Type, the Go
// analogue of the source implementation's pin() helper: the field is named
// "value" and is reachable as view.(*StructView).Field("value"). The
// returned *StructType is interned, so repeated calls with an Equal field
// type return the same canonical descriptor.
func PinType(field Type) *StructType {
	name := fmt.Sprintf("Pinned<%s>", field.CacheKey())
	st, err := NewStruct(name, []FieldDecl{{Name: "value", Type: field}})
	if err != nil {
		// A single-field struct around any valid Type cannot fail
		// construction; if it does, the field itself is malformed.
		panic(err)
	}
	return Intern(st).(*StructType)
}
