// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import (
	"encoding/binary"
	"fmt"
	"math"
)

// RawType is a dumb struct.pack/unpack-style field: its value is a []any
// tuple matching the scalar slots of its format string. Num layers a
// single-value convenience on top of it; most schemas use Num, not RawType,
// directly.
type RawType struct {
	fmt format
}

// NewRaw builds a Raw(fmt) descriptor from a packed-struct format string,
// e.g. "<IHB". The leading '<' or '>' selects byte order; it is never
// inferred.
func NewRaw(fmtStr string) (*RawType, error) {
	f, err := parseFormat(fmtStr)
	if err != nil {
		return nil, err
	}
	return &RawType{fmt: f}, nil
}

// MustRaw is NewRaw but panics on a malformed format string, for use in
// package-level schema declarations where the format is a compile-time
// constant.
func MustRaw(fmtStr string) *RawType {
	t, err := NewRaw(fmtStr)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RawType) Kind() Kind { return KindRaw }

func (t *RawType) Size() (int64, bool) { return t.fmt.size, true }

func (t *RawType) Pack(value any) ([]byte, error) {
	tuple, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: Raw(%s).Pack wants []any, got %T", ErrFormat, t.fmt.raw, value)
	}
	if len(tuple) != len(t.fmt.elems) {
		return nil, fmt.Errorf("%w: Raw(%s) wants %d values, got %d", ErrFormat, t.fmt.raw, len(t.fmt.elems), len(tuple))
	}
	out := make([]byte, 0, t.fmt.size)
	for i, k := range t.fmt.elems {
		b, err := packElem(t.fmt.order, k, tuple[i])
		if err != nil {
			return nil, fmt.Errorf("Raw(%s): element %d: %w", t.fmt.raw, i, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

func (t *RawType) Unpack(raw []byte) (any, error) {
	if int64(len(raw)) != t.fmt.size {
		return nil, fmt.Errorf("%w: Raw(%s) wants %d bytes, got %d", ErrFormat, t.fmt.raw, t.fmt.size, len(raw))
	}
	tuple := make([]any, len(t.fmt.elems))
	off := int64(0)
	for i, k := range t.fmt.elems {
		v := unpackElem(t.fmt.order, k, raw[off:off+k.size()])
		tuple[i] = v
		off += k.size()
	}
	return tuple, nil
}

func (t *RawType) Get(vm VM, addr Addr) (any, error) {
	raw, err := vm.Read(addr, t.fmt.size)
	if err != nil {
		return nil, err
	}
	return t.Unpack(raw)
}

func (t *RawType) Set(vm VM, addr Addr, value any) error {
	raw, err := t.Pack(value)
	if err != nil {
		return err
	}
	return vm.Write(addr, raw)
}

func (t *RawType) Equal(other Type) bool {
	o, ok := other.(*RawType)
	return ok && t.fmt.raw == o.fmt.raw
}

func (t *RawType) CacheKey() string { return "Raw:" + t.fmt.raw }

func (t *RawType) String() string { return fmt.Sprintf("Raw(%s)", t.fmt.raw) }

func packElem(order binary.ByteOrder, k elemKind, v any) ([]byte, error) {
	b := make([]byte, k.size())
	switch k {
	case elemInt8:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		b[0] = byte(int8(n))
	case elemUint8:
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		b[0] = byte(uint8(n))
	case elemInt16:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint16(b, uint16(int16(n)))
	case elemUint16:
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint16(b, uint16(n))
	case elemInt32:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint32(b, uint32(int32(n)))
	case elemUint32:
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint32(b, uint32(n))
	case elemInt64:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint64(b, uint64(n))
	case elemUint64:
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint64(b, n)
	case elemFloat32:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint32(b, math.Float32bits(float32(f)))
	case elemFloat64:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		order.PutUint64(b, math.Float64bits(f))
	}
	return b, nil
}

func unpackElem(order binary.ByteOrder, k elemKind, raw []byte) any {
	switch k {
	case elemInt8:
		return int8(raw[0])
	case elemUint8:
		return uint8(raw[0])
	case elemInt16:
		return int16(order.Uint16(raw))
	case elemUint16:
		return order.Uint16(raw)
	case elemInt32:
		return int32(order.Uint32(raw))
	case elemUint32:
		return order.Uint32(raw)
	case elemInt64:
		return int64(order.Uint64(raw))
	case elemUint64:
		return order.Uint64(raw)
	case elemFloat32:
		return math.Float32frombits(order.Uint32(raw))
	case elemFloat64:
		return math.Float64frombits(order.Uint64(raw))
	default:
		panic("unreachable elemKind")
	}
}

// asInt64/asUint64/asFloat64 accept any Go integer/float kind so schema
// authors can write literal constants (untyped int -> int) or pass back a
// value obtained from another field's Get without manual conversion.
func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case Addr:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as an integer", ErrFormat, v)
	}
}

func asUint64(v any) (uint64, error) {
	n, err := asInt64(v)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		i, err := asInt64(v)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot use %T as a float", ErrFormat, v)
		}
		return float64(i), nil
	}
}
