// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import "fmt"

// UnionType puts every member at offset 0 (spec.md "Union aliasing"); its
// size is the largest member's size. An anonymous Union field in a struct
// promotes its members into the enclosing struct's namespace (see
// promotedFields and NewStruct).
type UnionType struct {
	Name   string
	Fields []Field // Off is always 0

	size   int64
	byName map[string]*Field
}

// NewUnion builds a Union([(name, type)]) descriptor. name is used only for
// CacheKey/String/Equal, the same as StructType.
func NewUnion(name string, fields []FieldDecl) (*UnionType, error) {
	ut := &UnionType{Name: name, byName: map[string]*Field{}}
	var max int64
	for _, fd := range fields {
		n, ok := fd.Type.Size()
		if !ok {
			return nil, fmt.Errorf("%w: union %s: member %q (%s) has no static size", ErrUnsized, name, fd.Name, fd.Type)
		}
		if n > max {
			max = n
		}
		f := Field{Name: fd.Name, Type: fd.Type, Off: 0}
		ut.Fields = append(ut.Fields, f)
	}
	for i := range ut.Fields {
		if _, dup := ut.byName[ut.Fields[i].Name]; dup {
			return nil, fmt.Errorf("typedmem: union %s: duplicate member %q", name, ut.Fields[i].Name)
		}
		ut.byName[ut.Fields[i].Name] = &ut.Fields[i]
	}
	ut.size = max
	return ut, nil
}

// MustUnion is NewUnion but panics on a malformed declaration.
func MustUnion(name string, fields []FieldDecl) *UnionType {
	ut, err := NewUnion(name, fields)
	if err != nil {
		panic(err)
	}
	return ut
}

func (t *UnionType) bindSelf(self *StructType) {
	for _, f := range t.Fields {
		if b, ok := f.Type.(selfBinder); ok {
			b.bindSelf(self)
		}
	}
}

func (t *UnionType) promotedFields(offset int64) []Field {
	out := make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		out[i] = Field{Name: f.Name, Type: f.Type, Off: offset}
	}
	return out
}

func (t *UnionType) Kind() Kind          { return KindUnion }
func (t *UnionType) Size() (int64, bool) { return t.size, true }

func (t *UnionType) lookup(name string) (*Field, error) {
	f, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: union %s has no member %q", ErrUnknownField, t.Name, name)
	}
	return f, nil
}

// Pack accepts raw bytes of exactly Size() length, the "assignable via raw
// bytes of exactly size()" semantics spec.md §9 prescribes as the intended
// fix for the source implementation's Union.set typo.
func (t *UnionType) Pack(value any) ([]byte, error) {
	raw, ok := value.([]byte)
	if !ok || int64(len(raw)) != t.size {
		return nil, fmt.Errorf("%w: union %s wants exactly %d raw bytes", ErrShape, t.Name, t.size)
	}
	return raw, nil
}

func (t *UnionType) Unpack(raw []byte) (any, error) {
	if int64(len(raw)) != t.size {
		return nil, fmt.Errorf("%w: union %s wants exactly %d raw bytes, got %d", ErrShape, t.Name, t.size, len(raw))
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (t *UnionType) Get(vm VM, addr Addr) (any, error) {
	return Pin(t, vm, addr)
}

// Set accepts a same-shape UnionView, a map[string]any of member
// assignments (each written through its member's Type, all sharing offset
// 0), or raw bytes of exactly Size() length.
func (t *UnionType) Set(vm VM, addr Addr, value any) error {
	switch v := value.(type) {
	case *UnionView:
		if !v.typ.Equal(t) {
			return fmt.Errorf("%w: cannot assign %s into %s", ErrShape, v.typ, t)
		}
		raw, err := v.Raw()
		if err != nil {
			return err
		}
		return vm.Write(addr, raw)
	case map[string]any:
		for name, val := range v {
			f, err := t.lookup(name)
			if err != nil {
				return err
			}
			if err := f.Type.Set(vm, addr, val); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		if int64(len(v)) != t.size {
			return fmt.Errorf("%w: union %s wants exactly %d raw bytes, got %d", ErrShape, t.Name, t.size, len(v))
		}
		return vm.Write(addr, v)
	default:
		return fmt.Errorf("%w: Union(%s).Set wants a same-shape view, map[string]any, or raw bytes, got %T", ErrShape, t.Name, value)
	}
}

func (t *UnionType) Equal(other Type) bool {
	o, ok := other.(*UnionType)
	return ok && t.Name == o.Name
}

func (t *UnionType) CacheKey() string { return "Union:" + t.Name }
func (t *UnionType) String() string   { return "Union(" + t.Name + ")" }

// UnionView is the pinned view over a UnionType (and, via the shared
// backing implementation, over a BitFieldType's member union).
type UnionView struct {
	base
	ut *UnionType
}

func (v *UnionView) Field(name string) (any, error) {
	f, err := v.ut.lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Type.Get(v.vm, v.addr)
}

func (v *UnionView) SetField(name string, value any) error {
	f, err := v.ut.lookup(name)
	if err != nil {
		return err
	}
	return f.Type.Set(v.vm, v.addr, value)
}

func (v *UnionView) CastField(name string, other Type) (View, error) {
	if _, err := v.ut.lookup(name); err != nil {
		return nil, err
	}
	return Pin(other, v.vm, v.addr)
}
