// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import "fmt"

// NumType represents a single integer or float, encoded with an explicit
// byte order and width, e.g. Num("<I") for a little-endian uint32. Num is
// the scalar building block most schemas use directly; Ptr is built on top
// of it.
type NumType struct {
	fmt format
}

// NewNum builds a Num(fmt) descriptor. fmt must resolve to exactly one
// scalar (a single type character after the byte-order prefix).
func NewNum(fmtStr string) (*NumType, error) {
	f, err := parseFormat(fmtStr)
	if err != nil {
		return nil, err
	}
	if len(f.elems) != 1 {
		return nil, fmt.Errorf("%w: Num format %q must resolve to exactly one value, got %d", ErrFormat, fmtStr, len(f.elems))
	}
	return &NumType{fmt: f}, nil
}

// MustNum is NewNum but panics on a malformed format, for schema literals.
func MustNum(fmtStr string) *NumType {
	t, err := NewNum(fmtStr)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *NumType) Kind() Kind { return KindNum }

func (t *NumType) Size() (int64, bool) { return t.fmt.size, true }

func (t *NumType) Pack(value any) ([]byte, error) {
	return packElem(t.fmt.order, t.fmt.elems[0], value)
}

func (t *NumType) Unpack(raw []byte) (any, error) {
	if int64(len(raw)) != t.fmt.size {
		return nil, fmt.Errorf("%w: Num(%s) wants %d bytes, got %d", ErrFormat, t.fmt.raw, t.fmt.size, len(raw))
	}
	return unpackElem(t.fmt.order, t.fmt.elems[0], raw), nil
}

func (t *NumType) Get(vm VM, addr Addr) (any, error) {
	raw, err := vm.Read(addr, t.fmt.size)
	if err != nil {
		return nil, err
	}
	return t.Unpack(raw)
}

func (t *NumType) Set(vm VM, addr Addr, value any) error {
	raw, err := t.Pack(value)
	if err != nil {
		return err
	}
	return vm.Write(addr, raw)
}

func (t *NumType) Equal(other Type) bool {
	o, ok := other.(*NumType)
	return ok && t.fmt.raw == o.fmt.raw
}

func (t *NumType) CacheKey() string { return "Num:" + t.fmt.raw }

func (t *NumType) String() string { return fmt.Sprintf("Num(%s)", t.fmt.raw) }
