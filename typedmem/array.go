// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import "fmt"

// ArrayType is a contiguous run of elem. A nil length means unsized (spec.md
// §4.6 "unsized array", e.g. a flexible array member or a raw memory
// window); a non-nil length is the mem_sized_array_type case and makes the
// array itself statically sized.
type ArrayType struct {
	elem   Type
	length *int64 // nil => unsized
}

// NewArrayType builds an unsized Array(elem), interning it so repeated calls
// with an Equal elem return the same descriptor identity (mem_array_type's
// DYN_MEM_STRUCT_CACHE in the source implementation). Indexing is unbounded:
// callers are trusted to stay within whatever memory actually backs the
// view, the same trust model the source implementation's ArrayBase
// documents.
func NewArrayType(elem Type) (*ArrayType, error) {
	if elem == nil {
		return nil, fmt.Errorf("typedmem: Array: elem must not be nil")
	}
	return internArray(&ArrayType{elem: elem}), nil
}

// NewSizedArrayType builds a fixed-length Array(elem, n), interned the same
// way NewArrayType is.
func NewSizedArrayType(elem Type, n int64) (*ArrayType, error) {
	if elem == nil {
		return nil, fmt.Errorf("typedmem: Array: elem must not be nil")
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: Array length must be non-negative, got %d", ErrShape, n)
	}
	return internArray(&ArrayType{elem: elem, length: &n}), nil
}

// internArray runs t through the process-wide cache unless elem carries an
// unbound SelfMarker somewhere inside it. An unbound Self's CacheKey doesn't
// depend on which enclosing struct will eventually bind it (struct.go's
// "Equal/CacheKey by Name alone" note explains why), so two different
// structs each declaring their own Array(Ptr(Self)) field would collide on
// the same cache entry and then fight over bindSelf's one-time, in-place
// self assignment. Leaving such arrays uninterned keeps each one a fresh,
// independently bindable descriptor; every other array is safe to share.
func internArray(t *ArrayType) *ArrayType {
	if mayBindSelf(t.elem) {
		return t
	}
	return Intern(t).(*ArrayType)
}

// mayBindSelf reports whether t is, or contains, a SelfMarker reference
// (through a Ptr whose target is Self, whether or not it is already bound).
func mayBindSelf(t Type) bool {
	switch tt := t.(type) {
	case *selfMarkerType:
		return true
	case *PtrType:
		return tt.dst.Kind() == KindSelf || mayBindSelf(tt.dst)
	case *ArrayType:
		return mayBindSelf(tt.elem)
	case *UnionType:
		for _, f := range tt.Fields {
			if mayBindSelf(f.Type) {
				return true
			}
		}
		return false
	case *BitFieldType:
		return mayBindSelf(tt.UnionType)
	default:
		return false
	}
}

// MustArrayType/MustSizedArrayType panic on a malformed declaration.
func MustArrayType(elem Type) *ArrayType {
	t, err := NewArrayType(elem)
	if err != nil {
		panic(err)
	}
	return t
}

func MustSizedArrayType(elem Type, n int64) *ArrayType {
	t, err := NewSizedArrayType(elem, n)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *ArrayType) bindSelf(self *StructType) {
	if b, ok := t.elem.(selfBinder); ok {
		b.bindSelf(self)
	}
}

func (t *ArrayType) Kind() Kind { return KindArray }

func (t *ArrayType) Size() (int64, bool) {
	if t.length == nil {
		return 0, false
	}
	elemSize, ok := t.elem.Size()
	if !ok {
		return 0, false
	}
	return elemSize * *t.length, true
}

// Len returns the element count for a sized array. It is an error to call
// Len on an unsized array.
func (t *ArrayType) Len() (int64, error) {
	if t.length == nil {
		return 0, fmt.Errorf("%w: Array is unsized, has no fixed length", ErrUnsized)
	}
	return *t.length, nil
}

func (t *ArrayType) elemSize() (int64, error) {
	n, ok := t.elem.Size()
	if !ok {
		return 0, fmt.Errorf("%w: Array element %s has no static size", ErrUnsized, t.elem)
	}
	return n, nil
}

func (t *ArrayType) elemAddr(base Addr, index int64) (Addr, error) {
	n, err := t.elemSize()
	if err != nil {
		return 0, err
	}
	i, err := t.normalizeIndex(index)
	if err != nil {
		return 0, err
	}
	return base.Add(i * n), nil
}

// normalizeIndex turns a negative index into one counted from the end
// (spec.md §4.6 "negative indices"), which requires a known length; for an
// unsized array, negative indices are always an error.
func (t *ArrayType) normalizeIndex(index int64) (int64, error) {
	if index >= 0 {
		if t.length != nil && index >= *t.length {
			return 0, fmt.Errorf("%w: index %d out of range for array of length %d", ErrIndex, index, *t.length)
		}
		return index, nil
	}
	if t.length == nil {
		return 0, fmt.Errorf("%w: negative index %d requires a sized array", ErrIndex, index)
	}
	i := *t.length + index
	if i < 0 {
		return 0, fmt.Errorf("%w: index %d out of range for array of length %d", ErrIndex, index, *t.length)
	}
	return i, nil
}

func (t *ArrayType) Pack(value any) ([]byte, error) {
	vals, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: Array.Pack wants []any, got %T", ErrShape, value)
	}
	elemSize, err := t.elemSize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, elemSize*int64(len(vals)))
	for i, v := range vals {
		raw, err := t.elem.Pack(v)
		if err != nil {
			return nil, fmt.Errorf("Array: element %d: %w", i, err)
		}
		out = append(out, raw...)
	}
	return out, nil
}

func (t *ArrayType) Unpack(raw []byte) (any, error) {
	elemSize, err := t.elemSize()
	if err != nil {
		return nil, err
	}
	if elemSize == 0 || int64(len(raw))%elemSize != 0 {
		return nil, fmt.Errorf("%w: Array raw length %d is not a multiple of element size %d", ErrShape, len(raw), elemSize)
	}
	n := int64(len(raw)) / elemSize
	out := make([]any, n)
	for i := int64(0); i < n; i++ {
		v, err := t.elem.Unpack(raw[i*elemSize : (i+1)*elemSize])
		if err != nil {
			return nil, fmt.Errorf("Array: element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Get returns a pinned ArrayView/SizedArrayView; per spec.md §4.1, aggregate
// types return a view, not a copy.
func (t *ArrayType) Get(vm VM, addr Addr) (any, error) {
	return Pin(t, vm, addr)
}

// Set accepts a same-shape view or a []any of element values assigned
// starting at index 0; on a sized array the []any must hold exactly Len()
// values, or Set fails with ErrShape.
func (t *ArrayType) Set(vm VM, addr Addr, value any) error {
	switch v := value.(type) {
	case *SizedArrayView:
		if !v.typ.Equal(t) {
			return fmt.Errorf("%w: cannot assign %s into %s", ErrShape, v.typ, t)
		}
		raw, err := v.Raw()
		if err != nil {
			return err
		}
		return vm.Write(addr, raw)
	case []any:
		if t.length != nil && int64(len(v)) != *t.length {
			return fmt.Errorf("%w: cannot assign %d values into %s", ErrShape, len(v), t)
		}
		elemSize, err := t.elemSize()
		if err != nil {
			return err
		}
		for i, val := range v {
			if err := t.elem.Set(vm, addr.Add(int64(i)*elemSize), val); err != nil {
				return fmt.Errorf("Array: element %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: Array.Set wants a same-shape view or []any, got %T", ErrShape, value)
	}
}

func (t *ArrayType) Equal(other Type) bool {
	o, ok := other.(*ArrayType)
	if !ok || !t.elem.Equal(o.elem) {
		return false
	}
	if (t.length == nil) != (o.length == nil) {
		return false
	}
	return t.length == nil || *t.length == *o.length
}

func (t *ArrayType) CacheKey() string {
	if t.length == nil {
		return fmt.Sprintf("Array:%s:-", t.elem.CacheKey())
	}
	return fmt.Sprintf("Array:%s:%d", t.elem.CacheKey(), *t.length)
}

func (t *ArrayType) String() string {
	if t.length == nil {
		return fmt.Sprintf("Array(%s)", t.elem)
	}
	return fmt.Sprintf("Array(%s, %d)", t.elem, *t.length)
}

// ArrayView is the pinned view over an unsized ArrayType: index access only,
// no Raw/Memset/Len (those require a known length; SizedArrayView adds
// them).
type ArrayView struct {
	base
	at *ArrayType
}

// Index returns a pinned view over the element at index (negative indices
// require a sized array, i.e. a *SizedArrayView).
func (v *ArrayView) Index(index int64) (View, error) {
	addr, err := v.at.elemAddr(v.addr, index)
	if err != nil {
		return nil, err
	}
	return Pin(v.at.elem, v.vm, addr)
}

// SetIndex writes the element at index.
func (v *ArrayView) SetIndex(index int64, value any) error {
	addr, err := v.at.elemAddr(v.addr, index)
	if err != nil {
		return err
	}
	return v.at.elem.Set(v.vm, addr, value)
}

// SizedArrayView is the pinned view over a sized ArrayType: everything
// ArrayView offers, plus Len, Raw, Memset, and slice-style Get/Set.
type SizedArrayView struct {
	ArrayView
}

// Len returns the element count.
func (v *SizedArrayView) Len() int64 {
	n, _ := v.at.Len()
	return n
}

// Slice returns pinned views over elements [lo, hi).
func (v *SizedArrayView) Slice(lo, hi int64) ([]View, error) {
	n := v.Len()
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < 0 || hi > n || lo > hi {
		return nil, fmt.Errorf("%w: slice [%d:%d] out of range for array of length %d", ErrIndex, lo, hi, n)
	}
	out := make([]View, 0, hi-lo)
	for i := lo; i < hi; i++ {
		view, err := v.Index(i)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// SetSlice writes values into elements [lo, hi), failing with ErrShape if
// hi-lo doesn't match len(values) (spec.md §4.6 "slice writes require
// len-matching").
func (v *SizedArrayView) SetSlice(lo, hi int64, values []any) error {
	n := v.Len()
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < 0 || hi > n || lo > hi {
		return fmt.Errorf("%w: slice [%d:%d] out of range for array of length %d", ErrIndex, lo, hi, n)
	}
	if hi-lo != int64(len(values)) {
		return fmt.Errorf("%w: slice [%d:%d] has %d elements, got %d values", ErrShape, lo, hi, hi-lo, len(values))
	}
	for i, val := range values {
		if err := v.SetIndex(lo+int64(i), val); err != nil {
			return fmt.Errorf("Array: element %d: %w", lo+int64(i), err)
		}
	}
	return nil
}
