// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import "errors"

// Sentinel errors corresponding to the error taxonomy of the overlay. Callers
// should use errors.Is against these, since the concrete error returned is
// usually wrapped with call-site context via fmt.Errorf's %w.
var (
	// ErrFormat is returned when a numeric format string resolves to the
	// wrong arity, e.g. packing a single value through a multi-field Raw
	// format, or a Num format that doesn't unpack to exactly one value.
	ErrFormat = errors.New("typedmem: format arity mismatch")

	// ErrShape is returned on size/length mismatches in bulk assignment,
	// such as assigning a list of the wrong length to a sized array, or a
	// raw byte assignment to a Union of the wrong length.
	ErrShape = errors.New("typedmem: shape mismatch")

	// ErrUnknownField is returned when a struct or union is accessed by a
	// field name it does not declare.
	ErrUnknownField = errors.New("typedmem: unknown field")

	// ErrIndex is returned when an array access (get, set, or slice) falls
	// outside the bounds of a sized array.
	ErrIndex = errors.New("typedmem: index out of range")

	// ErrOverflow is returned at BitField construction time when the sum
	// of member bit-widths exceeds the backing Num's bit width.
	ErrOverflow = errors.New("typedmem: bitfield overflows backing type")

	// ErrUnsized is returned when an operation needs the static size of a
	// descriptor that has none (Str, unsized Array, Void, an unbound
	// SelfMarker): Array.Len, a view's Raw/Memset, a struct or union
	// member, or auto-allocation. Size itself reports this as ok=false.
	ErrUnsized = errors.New("typedmem: type has no static size")

	// ErrNoAllocator is returned when a pinned view is constructed without
	// an address and no allocator has been installed with SetAllocator.
	ErrNoAllocator = errors.New("typedmem: no allocator installed")

	// ErrUnboundSelf is returned when a SelfMarker is dereferenced (via a
	// Ptr or otherwise) before it has been bound to an enclosing struct.
	ErrUnboundSelf = errors.New("typedmem: SelfMarker used outside an enclosing struct")
)
