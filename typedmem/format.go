// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import (
	"encoding/binary"
	"fmt"
)

// elemKind is one scalar slot of a parsed format string.
type elemKind uint8

const (
	elemInt8 elemKind = iota
	elemUint8
	elemInt16
	elemUint16
	elemInt32
	elemUint32
	elemInt64
	elemUint64
	elemFloat32
	elemFloat64
)

func (k elemKind) size() int64 {
	switch k {
	case elemInt8, elemUint8:
		return 1
	case elemInt16, elemUint16:
		return 2
	case elemInt32, elemUint32, elemFloat32:
		return 4
	case elemInt64, elemUint64, elemFloat64:
		return 8
	default:
		panic("unreachable elemKind")
	}
}

// format is a parsed packed-struct format string, e.g. "<IB" or ">Q". The
// leading byte-order character is mandatory: spec.md explicitly rules out
// endianness negotiation, so every Num/Raw descriptor must name its order.
type format struct {
	raw   string
	order binary.ByteOrder
	elems []elemKind
	size  int64
}

func parseFormat(f string) (format, error) {
	if len(f) < 2 {
		return format{}, fmt.Errorf("typedmem: format %q too short (need byte-order prefix + at least one type char)", f)
	}
	var order binary.ByteOrder
	switch f[0] {
	case '<':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	default:
		return format{}, fmt.Errorf("typedmem: format %q must start with '<' (little-endian) or '>' (big-endian)", f)
	}
	var elems []elemKind
	var size int64
	for i := 1; i < len(f); i++ {
		var k elemKind
		switch f[i] {
		case 'b':
			k = elemInt8
		case 'B':
			k = elemUint8
		case 'h':
			k = elemInt16
		case 'H':
			k = elemUint16
		case 'i', 'l':
			k = elemInt32
		case 'I', 'L':
			k = elemUint32
		case 'q':
			k = elemInt64
		case 'Q':
			k = elemUint64
		case 'f':
			k = elemFloat32
		case 'd':
			k = elemFloat64
		default:
			return format{}, fmt.Errorf("typedmem: format %q has unknown type char %q", f, f[i])
		}
		elems = append(elems, k)
		size += k.size()
	}
	if len(elems) == 0 {
		return format{}, fmt.Errorf("typedmem: format %q has no type characters", f)
	}
	return format{raw: f, order: order, elems: elems, size: size}, nil
}
