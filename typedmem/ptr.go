// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import (
	"fmt"
	"os"
)

// selfMarkerType is the sentinel Type returned by the Self value. A Ptr (or
// an Array of Ptr) built with Self as its target is resolved to the
// enclosing StructType the first time that struct is constructed; see
// PtrType.bindSelf and NewStruct.
type selfMarkerType struct{}

// Self is the SelfMarker sentinel: pass it as a Ptr's target to mean "a
// pointer to the struct this field is declared in".
var Self Type = &selfMarkerType{}

func (t *selfMarkerType) Kind() Kind         { return KindSelf }
func (t *selfMarkerType) Size() (int64, bool) { return 0, false }

func (t *selfMarkerType) Pack(any) ([]byte, error) {
	return nil, ErrUnboundSelf
}

func (t *selfMarkerType) Unpack([]byte) (any, error) {
	return nil, ErrUnboundSelf
}

func (t *selfMarkerType) Get(VM, Addr) (any, error) {
	return nil, ErrUnboundSelf
}

func (t *selfMarkerType) Set(VM, Addr, any) error {
	return ErrUnboundSelf
}

func (t *selfMarkerType) Equal(other Type) bool {
	_, ok := other.(*selfMarkerType)
	return ok
}

func (t *selfMarkerType) CacheKey() string { return "SelfMarker" }
func (t *selfMarkerType) String() string   { return "SelfMarker" }

// PtrType is a Num whose integer value is the address of another Type. Its
// own in-memory footprint is the width of its format, independent of the
// target's size (spec invariant "Ptr width is its own").
type PtrType struct {
	fmt  format
	dst  Type
	self *StructType // set once by bindSelf, only meaningful if dst == Self
}

// NewPtr builds a Ptr(fmt, dst) descriptor. dst may be a concrete Type, a
// previously-declared *StructType, or the Self marker (resolved once the
// struct containing this field is constructed).
func NewPtr(fmtStr string, dst Type) (*PtrType, error) {
	f, err := parseFormat(fmtStr)
	if err != nil {
		return nil, err
	}
	if len(f.elems) != 1 {
		return nil, fmt.Errorf("%w: Ptr format %q must resolve to exactly one value", ErrFormat, fmtStr)
	}
	if dst == nil {
		return nil, fmt.Errorf("typedmem: Ptr dst must not be nil")
	}
	return &PtrType{fmt: f, dst: dst}, nil
}

// MustPtr is NewPtr but panics on a malformed format, for schema literals.
func MustPtr(fmtStr string, dst Type) *PtrType {
	t, err := NewPtr(fmtStr, dst)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *PtrType) bindSelf(self *StructType) {
	if t.dst.Kind() == KindSelf && t.self == nil {
		t.self = self
	}
	if b, ok := t.dst.(selfBinder); ok {
		b.bindSelf(self)
	}
}

// DstType resolves and returns the type this pointer targets, failing with
// ErrUnboundSelf if it targets Self and has not yet been bound to an
// enclosing struct.
func (t *PtrType) DstType() (Type, error) {
	if t.dst.Kind() == KindSelf {
		if t.self == nil {
			return nil, ErrUnboundSelf
		}
		return t.self, nil
	}
	return t.dst, nil
}

// resolvedDst returns DstType without erroring, for use in contexts (Equal,
// CacheKey, String) that must not fail on an unbound Self. It returns the
// Self sentinel itself when unbound.
func (t *PtrType) resolvedDst() Type {
	if t.dst.Kind() == KindSelf && t.self != nil {
		return t.self
	}
	return t.dst
}

func (t *PtrType) Kind() Kind { return KindPtr }

func (t *PtrType) Size() (int64, bool) { return t.fmt.size, true }

func (t *PtrType) Pack(value any) ([]byte, error) {
	a, err := asAddr(value)
	if err != nil {
		return nil, err
	}
	return packElem(t.fmt.order, t.fmt.elems[0], uint64(a))
}

func (t *PtrType) Unpack(raw []byte) (any, error) {
	if int64(len(raw)) != t.fmt.size {
		return nil, fmt.Errorf("%w: Ptr(%s) wants %d bytes, got %d", ErrFormat, t.fmt.raw, t.fmt.size, len(raw))
	}
	v := unpackElem(t.fmt.order, t.fmt.elems[0], raw)
	n, err := asUint64(v)
	if err != nil {
		return nil, err
	}
	return Addr(n), nil
}

// Get reads the raw address value (the value level of spec.md §4.2), not
// the pointee. Use Deref for pointer dereference.
func (t *PtrType) Get(vm VM, addr Addr) (any, error) {
	raw, err := vm.Read(addr, t.fmt.size)
	if err != nil {
		return nil, err
	}
	return t.Unpack(raw)
}

// Set writes the raw address value. Writing a pinned-pointer view's value
// copies the address, not the pointee; writing an integer writes it
// verbatim subject to the format width, matching the documented assignment
// edge cases.
func (t *PtrType) Set(vm VM, addr Addr, value any) error {
	raw, err := t.Pack(value)
	if err != nil {
		return err
	}
	return vm.Write(addr, raw)
}

// Deref reads the address stored at addr and returns a pinned View over
// dst_type at that address (spec.md §4.2 "Deref level").
func (t *PtrType) Deref(vm VM, addr Addr) (View, error) {
	target, err := t.Get(vm, addr)
	if err != nil {
		return nil, err
	}
	dst, err := t.DstType()
	if err != nil {
		return nil, err
	}
	return Pin(dst, vm, target.(Addr))
}

// SetDeref writes view's raw bytes to the address currently stored at addr.
// A shape mismatch between dst_type and view's type only warns (to stderr,
// matching the source implementation's log.warning) and proceeds: it is
// documented as an intentional bit-level cast.
func (t *PtrType) SetDeref(vm VM, addr Addr, view View) error {
	dst, err := t.DstType()
	if err != nil {
		return err
	}
	if !dst.Equal(view.Type()) {
		fmt.Fprintf(os.Stderr, "typedmem: warning: Ptr target was %s, overridden by write of %s\n", dst, view.Type())
	}
	target, err := t.Get(vm, addr)
	if err != nil {
		return err
	}
	raw, err := view.Raw()
	if err != nil {
		return err
	}
	return vm.Write(target.(Addr), raw)
}

func (t *PtrType) Equal(other Type) bool {
	o, ok := other.(*PtrType)
	if !ok || t.fmt.raw != o.fmt.raw {
		return false
	}
	tUnbound := t.dst.Kind() == KindSelf && t.self == nil
	oUnbound := o.dst.Kind() == KindSelf && o.self == nil
	if tUnbound || oUnbound {
		// Per the documented open issue: comparing unbound pointers is
		// only meaningful when both sides are unbound.
		return tUnbound && oUnbound
	}
	return t.resolvedDst().Equal(o.resolvedDst())
}

func (t *PtrType) CacheKey() string {
	return fmt.Sprintf("Ptr:%s:%s", t.fmt.raw, t.resolvedDst().CacheKey())
}

func (t *PtrType) String() string {
	return fmt.Sprintf("Ptr(%s -> %s)", t.fmt.raw, t.resolvedDst())
}

// PointerView is the pinned view over a PtrType: Value reads the stored
// address, Deref follows it.
type PointerView struct {
	base
	ptr *PtrType
}

// Value returns the stored address (the value level, spec.md §4.2).
func (v *PointerView) Value() (Addr, error) {
	a, err := v.ptr.Get(v.vm, v.addr)
	if err != nil {
		return 0, err
	}
	return a.(Addr), nil
}

// SetValue overwrites the stored address without touching the pointee.
func (v *PointerView) SetValue(target Addr) error {
	return v.ptr.Set(v.vm, v.addr, target)
}

// Deref follows the pointer and returns a pinned view over its target.
func (v *PointerView) Deref() (View, error) {
	return v.ptr.Deref(v.vm, v.addr)
}

// SetDeref writes view's bytes to the address currently stored here.
func (v *PointerView) SetDeref(view View) error {
	return v.ptr.SetDeref(v.vm, v.addr, view)
}

func asAddr(v any) (Addr, error) {
	if a, ok := v.(Addr); ok {
		return a, nil
	}
	n, err := asUint64(v)
	if err != nil {
		return 0, err
	}
	return Addr(n), nil
}
