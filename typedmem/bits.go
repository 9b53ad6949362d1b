// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import "fmt"

// BitsType reads/writes n bits of a backing Num, starting at bitOffset
// (counted from the LSB). It is the building block BitField assembles;
// pinning a BitsType directly is legal but unusual.
type BitsType struct {
	num       *NumType
	bits      int
	bitOffset int
}

// NewBits builds a Bits(num, n, off) descriptor.
func NewBits(num *NumType, bits, bitOffset int) (*BitsType, error) {
	if num == nil {
		return nil, fmt.Errorf("typedmem: Bits: backing num must not be nil")
	}
	if bits <= 0 {
		return nil, fmt.Errorf("typedmem: Bits: bit width must be positive, got %d", bits)
	}
	if bitOffset < 0 {
		return nil, fmt.Errorf("typedmem: Bits: bit offset must be non-negative, got %d", bitOffset)
	}
	numSize, _ := num.Size()
	if int64(bitOffset+bits) > numSize*8 {
		return nil, fmt.Errorf("%w: Bits(%d:%d) does not fit in backing %s (%d bits)", ErrOverflow, bitOffset, bitOffset+bits, num, numSize*8)
	}
	return &BitsType{num: num, bits: bits, bitOffset: bitOffset}, nil
}

func (t *BitsType) Kind() Kind          { return KindBits }
func (t *BitsType) Size() (int64, bool) { return t.num.Size() }

func (t *BitsType) mask() uint64 {
	return (uint64(1) << uint(t.bits)) - 1
}

func (t *BitsType) Pack(value any) ([]byte, error) {
	return nil, fmt.Errorf("typedmem: Bits has no standalone binary representation; use Get/Set")
}

func (t *BitsType) Unpack(raw []byte) (any, error) {
	v, err := t.num.Unpack(raw)
	if err != nil {
		return nil, err
	}
	n, err := asUint64(v)
	if err != nil {
		return nil, err
	}
	return (n >> uint(t.bitOffset)) & t.mask(), nil
}

func (t *BitsType) Get(vm VM, addr Addr) (any, error) {
	v, err := t.num.Get(vm, addr)
	if err != nil {
		return nil, err
	}
	n, err := asUint64(v)
	if err != nil {
		return nil, err
	}
	return (n >> uint(t.bitOffset)) & t.mask(), nil
}

// Set reads the existing backing value, clears bits [off, off+n), ORs in
// (val & mask) << off, and writes the whole backing num back. Values that
// don't fit in n bits are silently truncated (spec.md §4.5).
func (t *BitsType) Set(vm VM, addr Addr, value any) error {
	val, err := asUint64(value)
	if err != nil {
		return err
	}
	cur, err := t.num.Get(vm, addr)
	if err != nil {
		return err
	}
	curN, err := asUint64(cur)
	if err != nil {
		return err
	}
	numBits, _ := t.num.Size()
	fullMask := uint64(1)<<uint(numBits*8) - 1
	if numBits == 8 {
		fullMask = ^uint64(0)
	}
	clearMask := (^(t.mask() << uint(t.bitOffset))) & fullMask
	res := (curN & clearMask) | ((val & t.mask()) << uint(t.bitOffset))
	return t.num.Set(vm, addr, res)
}

func (t *BitsType) Equal(other Type) bool {
	o, ok := other.(*BitsType)
	return ok && t.num.Equal(o.num) && t.bits == o.bits && t.bitOffset == o.bitOffset
}

func (t *BitsType) CacheKey() string {
	return fmt.Sprintf("Bits:%s:%d:%d", t.num.CacheKey(), t.bits, t.bitOffset)
}

func (t *BitsType) String() string {
	return fmt.Sprintf("Bits%s(%d:%d)", t.num, t.bitOffset, t.bitOffset+t.bits)
}

// BitFieldMember is one (name, bit-width) entry of a BitField declaration.
type BitFieldMember struct {
	Name string
	Bits int
}

// BitFieldType is a Union of Bits fields sharing one backing Num, offsets
// assigned consecutively from the LSB upward (spec.md §4.5). Getting or
// setting the BitFieldType itself (as opposed to one of its members) reads
// or writes the whole backing num.
type BitFieldType struct {
	*UnionType
	num *NumType
}

// NewBitField builds a BitField(num, [(name, bits)]) descriptor. Fails with
// ErrOverflow if the member bit-widths sum to more than num's bit width.
func NewBitField(num *NumType, members []BitFieldMember) (*BitFieldType, error) {
	var decls []FieldDecl
	name := "BitField<" + num.CacheKey()
	offset := 0
	for _, m := range members {
		b, err := NewBits(num, m.Bits, offset)
		if err != nil {
			return nil, err
		}
		decls = append(decls, FieldDecl{Name: m.Name, Type: b})
		name += fmt.Sprintf(":%s=%d", m.Name, m.Bits)
		offset += m.Bits
	}
	// The union's name carries every member, so Equal/CacheKey (by name)
	// tell apart bitfields over the same num with different members.
	ut, err := NewUnion(name+">", decls)
	if err != nil {
		return nil, err
	}
	return &BitFieldType{UnionType: ut, num: num}, nil
}

// MustBitField is NewBitField but panics on a malformed declaration.
func MustBitField(num *NumType, members []BitFieldMember) *BitFieldType {
	t, err := NewBitField(num, members)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *BitFieldType) Kind() Kind { return KindBitField }

func (t *BitFieldType) Pack(value any) ([]byte, error) { return t.num.Pack(value) }
func (t *BitFieldType) Unpack(raw []byte) (any, error) { return t.num.Unpack(raw) }
func (t *BitFieldType) Get(vm VM, addr Addr) (any, error) {
	return t.num.Get(vm, addr)
}
func (t *BitFieldType) Set(vm VM, addr Addr, value any) error {
	return t.num.Set(vm, addr, value)
}

func (t *BitFieldType) Equal(other Type) bool {
	o, ok := other.(*BitFieldType)
	return ok && t.num.Equal(o.num) && t.UnionType.Equal(o.UnionType)
}

func (t *BitFieldType) CacheKey() string {
	return "BitField:" + t.UnionType.CacheKey()
}

func (t *BitFieldType) String() string {
	return fmt.Sprintf("BitField(%s)", t.UnionType.Name)
}
