// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typedmem

import (
	"bytes"
	"fmt"
	"unicode/utf16"
)

// StrEncoding selects how a Str type's bytes decode to a Go string.
type StrEncoding uint8

const (
	// StrANSI is a NUL-terminated C string of single-byte units. Its bytes
	// are not transcoded: Set writes the Go string's UTF-8 bytes and Get
	// returns the bytes before the NUL unchanged, so only ASCII text has
	// one byte per character; bytes 0x80-0xff are not read as Latin-1.
	StrANSI StrEncoding = iota
	// StrUTF16LE is a two-byte-per-unit, little-endian, NUL-terminated
	// wide string (Windows UNICODE_STRING-style).
	StrUTF16LE
)

func (e StrEncoding) unitSize() int64 {
	if e == StrUTF16LE {
		return 2
	}
	return 1
}

func (e StrEncoding) String() string {
	if e == StrUTF16LE {
		return "utf16le"
	}
	return "ansi"
}

// StrType is a NUL-terminated string with no static size (spec.md §4.7): its
// length is discovered by scanning memory for a terminator, capped at
// maxBytes (0 means unbounded, matching the source implementation's default
// of scanning until it finds one).
type StrType struct {
	enc      StrEncoding
	maxBytes int64
}

// NewStr builds a Str(enc) descriptor with no scan cap.
func NewStr(enc StrEncoding) *StrType {
	return &StrType{enc: enc}
}

// NewStrMax builds a Str(enc) descriptor capped at maxBytes bytes scanned;
// ErrOverflow is returned if no terminator is found within the cap.
func NewStrMax(enc StrEncoding, maxBytes int64) *StrType {
	return &StrType{enc: enc, maxBytes: maxBytes}
}

func (t *StrType) Kind() Kind          { return KindStr }
func (t *StrType) Size() (int64, bool) { return 0, false }

func (t *StrType) Pack(value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: Str.Pack wants string, got %T", ErrShape, value)
	}
	return t.encode(s), nil
}

func (t *StrType) encode(s string) []byte {
	if t.enc == StrUTF16LE {
		units := utf16.Encode([]rune(s))
		out := make([]byte, 0, len(units)*2+2)
		for _, u := range units {
			out = append(out, byte(u), byte(u>>8))
		}
		return append(out, 0, 0)
	}
	out := make([]byte, 0, len(s)+1)
	out = append(out, s...)
	return append(out, 0)
}

// Unpack decodes raw as a string with no terminator expected: the whole
// slice is the string's content. Use Get to scan live memory for the
// terminator.
func (t *StrType) Unpack(raw []byte) (any, error) {
	return t.decode(raw), nil
}

func (t *StrType) decode(raw []byte) string {
	if t.enc == StrUTF16LE {
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		}
		return string(utf16.Decode(units))
	}
	return string(raw)
}

// scan reads memory in chunks from addr (one unit at a time where a whole
// chunk is not readable) until it finds a terminator (a single zero byte
// for ANSI, a 00 00 pair aligned to the unit size for UTF-16LE) or exceeds
// maxBytes, and returns the bytes before the terminator.
func (t *StrType) scan(vm VM, addr Addr) ([]byte, error) {
	const chunk = 64
	unit := t.enc.unitSize()
	var out []byte
	var scanned int64
	for {
		want := int64(chunk)
		if t.maxBytes > 0 && scanned+want > t.maxBytes {
			want = t.maxBytes - scanned
			if want <= 0 {
				return nil, fmt.Errorf("%w: Str(%s) exceeded max scan of %d bytes with no terminator", ErrOverflow, t.enc, t.maxBytes)
			}
		}
		buf, err := vm.Read(addr.Add(scanned), want)
		if err != nil && want > unit {
			// The chunk runs past readable memory, but the terminator may
			// still lie before that point: fall back to one unit.
			buf, err = vm.Read(addr.Add(scanned), unit)
		}
		if err != nil {
			return nil, err
		}
		term := findTerminator(buf, unit)
		if term >= 0 {
			return append(out, buf[:term]...), nil
		}
		out = append(out, buf...)
		scanned += int64(len(buf))
	}
}

func findTerminator(buf []byte, unit int64) int {
	if unit == 1 {
		return bytes.IndexByte(buf, 0)
	}
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] == 0 && buf[i+1] == 0 {
			return i
		}
	}
	return -1
}

// Get scans live memory at addr for a terminator and decodes the result
// (spec.md §4.7 "AsString level" is the string form; the pinned StrView
// additionally exposes the raw pre-terminator bytes).
func (t *StrType) Get(vm VM, addr Addr) (any, error) {
	raw, err := t.scan(vm, addr)
	if err != nil {
		return nil, err
	}
	return t.decode(raw), nil
}

// Set writes value followed by its terminator.
func (t *StrType) Set(vm VM, addr Addr, value any) error {
	raw, err := t.Pack(value)
	if err != nil {
		return err
	}
	return vm.Write(addr, raw)
}

func (t *StrType) Equal(other Type) bool {
	o, ok := other.(*StrType)
	return ok && t.enc == o.enc && t.maxBytes == o.maxBytes
}

func (t *StrType) CacheKey() string {
	return fmt.Sprintf("Str:%s:%d", t.enc, t.maxBytes)
}

func (t *StrType) String() string {
	if t.maxBytes > 0 {
		return fmt.Sprintf("Str(%s, max=%d)", t.enc, t.maxBytes)
	}
	return fmt.Sprintf("Str(%s)", t.enc)
}

// StrView is the pinned view over a StrType. Raw/Memset fail with
// ErrUnsized (the type has no static size); use AsString/Bytes instead.
type StrView struct {
	base
	st *StrType
}

// AsString scans memory from this view's address and decodes it.
func (v *StrView) AsString() (string, error) {
	s, err := v.st.Get(v.vm, v.addr)
	if err != nil {
		return "", err
	}
	return s.(string), nil
}

// Bytes scans memory from this view's address and returns the raw
// pre-terminator bytes, without decoding.
func (v *StrView) Bytes() ([]byte, error) {
	return v.st.scan(v.vm, v.addr)
}

// SetString writes s followed by its terminator.
func (v *StrView) SetString(s string) error {
	return v.st.Set(v.vm, v.addr, s)
}
