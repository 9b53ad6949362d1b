// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import "fmt"

// FieldDecl is one (name, Type) entry of a struct declaration; order is
// significant and defines layout (spec.md §3 "Stable offsets").
type FieldDecl struct {
	Name string
	Type Type
}

// Field is a resolved struct field: its declared Type plus the offset
// assigned to it at construction time.
type Field struct {
	Name string
	Type Type
	Off  int64
}

// promoter is implemented by Union and BitField: an anonymous union field
// embedded in a struct promotes its members into the enclosing struct's
// field namespace (spec.md §4.3).
type promoter interface {
	promotedFields(offset int64) []Field
}

// StructType lays out its fields in declaration order with no padding
// (spec.md §3 "packed layout"). Equality and CacheKey are by Name alone:
// this is the documented exception that keeps self-referential structs
// (a struct containing a Ptr back to itself) from looping when compared or
// cached, and is also what makes two independently-declared structs with
// the same name collapse to a single cached descriptor (spec.md §8 "Cache
// identity").
type StructType struct {
	Name   string
	Fields []Field

	size     int64
	byName   map[string]*Field
	promoted map[string]*Field // name -> promoted field (from an anonymous Union/BitField)
}

// NewStruct builds a Struct(name, fields) descriptor. Each field's
// bindSelf is invoked (if it implements selfBinder) before the next
// field's offset is computed, exactly mirroring the source
// implementation's gen_fields: "field._set_self_type(cls)" called once per
// field, in order.
func NewStruct(name string, fields []FieldDecl) (*StructType, error) {
	st := &StructType{
		Name:     name,
		byName:   map[string]*Field{},
		promoted: map[string]*Field{},
	}
	var offset int64
	for _, fd := range fields {
		if fd.Type == nil {
			return nil, fmt.Errorf("typedmem: struct %s: field %q has a nil Type", name, fd.Name)
		}
		if b, ok := fd.Type.(selfBinder); ok {
			b.bindSelf(st)
		}
		n, ok := fd.Type.Size()
		if !ok {
			return nil, fmt.Errorf("%w: struct %s: field %q (%s) has no static size", ErrUnsized, name, fd.Name, fd.Type)
		}
		f := Field{Name: fd.Name, Type: fd.Type, Off: offset}
		st.Fields = append(st.Fields, f)
		if _, dup := st.byName[fd.Name]; dup {
			return nil, fmt.Errorf("typedmem: struct %s: duplicate field %q", name, fd.Name)
		}
		fp := &st.Fields[len(st.Fields)-1]
		st.byName[fd.Name] = fp
		if p, ok := fd.Type.(promoter); ok {
			for _, pf := range p.promotedFields(offset) {
				pf := pf
				if _, dup := st.byName[pf.Name]; dup {
					return nil, fmt.Errorf("typedmem: struct %s: promoted field %q collides with an existing field", name, pf.Name)
				}
				st.promoted[pf.Name] = &pf
			}
		}
		offset += n
	}
	st.size = offset
	return st, nil
}

// MustStruct is NewStruct but panics on a malformed declaration, for
// package-level schema literals (the common case: schemas are declared
// once, at init time, from a fixed field list).
func MustStruct(name string, fields []FieldDecl) *StructType {
	st, err := NewStruct(name, fields)
	if err != nil {
		panic(err)
	}
	return st
}

func (t *StructType) Kind() Kind          { return KindStruct }
func (t *StructType) Size() (int64, bool) { return t.size, true }

func (t *StructType) lookup(name string) (*Field, error) {
	if f, ok := t.byName[name]; ok {
		return f, nil
	}
	if f, ok := t.promoted[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, t.Name, name)
}

// HasField reports whether name is a declared or promoted field.
func (t *StructType) HasField(name string) bool {
	_, err := t.lookup(name)
	return err == nil
}

// Offset returns the byte offset of a declared or promoted field.
func (t *StructType) Offset(name string) (int64, error) {
	f, err := t.lookup(name)
	if err != nil {
		return 0, err
	}
	return f.Off, nil
}

// Pack/Unpack operate on a map[string]any of field name to field value;
// they exist mostly so StructType satisfies Type, and so raw() on a
// StructView (via base.Raw, which reads bytes directly) is the normal path
// rather than Pack/Unpack roundtripping through Go values.
func (t *StructType) Pack(value any) ([]byte, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: Struct(%s).Pack wants map[string]any, got %T", ErrShape, t.Name, value)
	}
	out := make([]byte, t.size)
	for _, f := range t.Fields {
		v, ok := m[f.Name]
		if !ok {
			continue
		}
		raw, err := f.Type.Pack(v)
		if err != nil {
			return nil, fmt.Errorf("struct %s: field %q: %w", t.Name, f.Name, err)
		}
		copy(out[f.Off:], raw)
	}
	return out, nil
}

func (t *StructType) Unpack(raw []byte) (any, error) {
	if int64(len(raw)) != t.size {
		return nil, fmt.Errorf("%w: struct %s wants %d bytes, got %d", ErrShape, t.Name, t.size, len(raw))
	}
	m := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		n, _ := f.Type.Size()
		v, err := f.Type.Unpack(raw[f.Off : f.Off+n])
		if err != nil {
			return nil, fmt.Errorf("struct %s: field %q: %w", t.Name, f.Name, err)
		}
		m[f.Name] = v
	}
	return m, nil
}

// Get returns a pinned StructView over (vm, addr); per spec.md §4.1,
// aggregate types return a view, not a copy.
func (t *StructType) Get(vm VM, addr Addr) (any, error) {
	return Pin(t, vm, addr)
}

// Set accepts either a StructView of the same shape (a struct-to-struct
// copy, by bytes) or a map[string]any of field assignments.
func (t *StructType) Set(vm VM, addr Addr, value any) error {
	switch v := value.(type) {
	case *StructView:
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
			if err := f.Type.Set(vm, addr.Add(f.Off), val); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: Struct(%s).Set wants a same-shape view or map[string]any, got %T", ErrShape, t.Name, value)
	}
}

func (t *StructType) Equal(other Type) bool {
	o, ok := other.(*StructType)
	return ok && t.Name == o.Name
}

func (t *StructType) CacheKey() string { return "Struct:" + t.Name }
func (t *StructType) String() string   { return t.Name }

// StructView is the pinned view over a StructType: field-by-name access,
// nested pointer dereference, and casts, all reading/writing through vm at
// addr+offset.
type StructView struct {
	base
	st *StructType
}

// FieldAddr returns the address of a named field (itself or promoted from
// an anonymous union/bitfield).
func (v *StructView) FieldAddr(name string) (Addr, error) {
	f, err := v.st.lookup(name)
	if err != nil {
		return 0, err
	}
	return v.addr.Add(f.Off), nil
}

// Field reads a field's value by name.
func (v *StructView) Field(name string) (any, error) {
	f, err := v.st.lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Type.Get(v.vm, v.addr.Add(f.Off))
}

// SetField writes a field's value by name.
func (v *StructView) SetField(name string, value any) error {
	f, err := v.st.lookup(name)
	if err != nil {
		return err
	}
	return f.Type.Set(v.vm, v.addr.Add(f.Off), value)
}

// DerefField dereferences a Ptr field by name.
func (v *StructView) DerefField(name string) (View, error) {
	f, err := v.st.lookup(name)
	if err != nil {
		return nil, err
	}
	ptr, ok := f.Type.(*PtrType)
	if !ok {
		return nil, fmt.Errorf("typedmem: field %q of %s is not a Ptr", name, v.st.Name)
	}
	return ptr.Deref(v.vm, v.addr.Add(f.Off))
}

// SetDerefField writes through a Ptr field by name.
func (v *StructView) SetDerefField(name string, value View) error {
	f, err := v.st.lookup(name)
	if err != nil {
		return err
	}
	ptr, ok := f.Type.(*PtrType)
	if !ok {
		return fmt.Errorf("typedmem: field %q of %s is not a Ptr", name, v.st.Name)
	}
	return ptr.SetDeref(v.vm, v.addr.Add(f.Off), value)
}

// CastField casts the memory at a named field's address to another Type.
func (v *StructView) CastField(name string, other Type) (View, error) {
	addr, err := v.FieldAddr(name)
	if err != nil {
		return nil, err
	}
	return Pin(other, v.vm, addr)
}
