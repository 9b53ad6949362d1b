// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memvm is a plain, growable, in-process implementation of
// typedmem.VM: a flat address space built out of independently-allocated
// Mappings, each with its own permissions. It plays the role the core
// package's splicedMemory/Mapping pair plays for a core dump, but backs
// live []byte regions instead of file-offset splices, since there is no
// inferior process or core file here -- just memory a test or demo wants to
// address by typedmem.Addr instead of by Go slice index.
package memvm

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/memoverlay/typedmem"
)

// Perm is the set of operations a Mapping allows.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
)

func (p Perm) String() string {
	switch p {
	case Read:
		return "R-"
	case Write:
		return "-W"
	case Read | Write:
		return "RW"
	default:
		return "--"
	}
}

// Mapping is one contiguous region of the address space.
type Mapping struct {
	min, max typedmem.Addr
	perm     Perm
	data     []byte // len(data) == max-min
}

// Min returns the lowest address of the mapping.
func (m *Mapping) Min() typedmem.Addr { return m.min }

// Max returns the address just beyond the mapping.
func (m *Mapping) Max() typedmem.Addr { return m.max }

// Size returns the mapping's length in bytes.
func (m *Mapping) Size() int64 { return int64(m.max - m.min) }

// Perm returns the mapping's permissions.
func (m *Mapping) Perm() Perm { return m.perm }

// Memory is a typedmem.VM made of explicit Mappings, sorted by address and
// searched by binary search (findMapping). Unlike core.Process's four-level
// page table -- sized for a 64-bit virtual address space scattered across a
// whole inferior -- a test or demo VM typically holds a handful of
// mappings, so a sorted slice is the simpler fit for the same job.
type Memory struct {
	mu       sync.RWMutex
	mappings []*Mapping
	next     typedmem.Addr // bump cursor for Map's auto-placement
}

// New returns an empty Memory. The first mapped byte is at address 1: 0 is
// reserved so the zero Addr reliably means "null" to schemas using Ptr.
func New() *Memory {
	return &Memory{next: 1}
}

// Map allocates a new mapping of size bytes with the given permissions and
// returns its base address. Mappings never overlap and are never returned
// to the pool by Unmap's removal of earlier mappings' addresses.
func (m *Memory) Map(size int64, perm Perm) (typedmem.Addr, error) {
	if size <= 0 {
		return 0, fmt.Errorf("memvm: Map size must be positive, got %d", size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.next
	mapping := &Mapping{min: base, max: base.Add(size), perm: perm, data: make([]byte, size)}
	m.mappings = append(m.mappings, mapping)
	sort.Slice(m.mappings, func(i, j int) bool { return m.mappings[i].min < m.mappings[j].min })
	m.next = mapping.max
	return base, nil
}

// Unmap removes the mapping starting exactly at base.
func (m *Memory) Unmap(base typedmem.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mapping := range m.mappings {
		if mapping.min == base {
			m.mappings = append(m.mappings[:i], m.mappings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memvm: no mapping based at %#x", uint64(base))
}

// Mappings returns the current mappings in address order. The returned
// slice is a snapshot; mutating it does not affect m.
func (m *Memory) Mappings() []*Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Mapping, len(m.mappings))
	copy(out, m.mappings)
	return out
}

// findMapping returns the mapping containing a, or nil.
func (m *Memory) findMapping(a typedmem.Addr) *Mapping {
	i := sort.Search(len(m.mappings), func(i int) bool { return m.mappings[i].max > a })
	if i < len(m.mappings) && m.mappings[i].min <= a {
		return m.mappings[i]
	}
	return nil
}

// Read implements typedmem.VM. The read must fall entirely within a single
// readable mapping; typedmem never splits a read across mappings.
func (m *Memory) Read(addr typedmem.Addr, n int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mapping := m.findMapping(addr)
	if mapping == nil {
		return nil, fmt.Errorf("memvm: read at %#x: unmapped", uint64(addr))
	}
	if mapping.perm&Read == 0 {
		return nil, fmt.Errorf("memvm: read at %#x: mapping %#x-%#x is not readable", uint64(addr), uint64(mapping.min), uint64(mapping.max))
	}
	off := int64(addr - mapping.min)
	if off+n > int64(len(mapping.data)) {
		return nil, fmt.Errorf("memvm: read at %#x, %d bytes: runs past end of mapping %#x-%#x", uint64(addr), n, uint64(mapping.min), uint64(mapping.max))
	}
	out := make([]byte, n)
	copy(out, mapping.data[off:off+n])
	return out, nil
}

// Write implements typedmem.VM.
func (m *Memory) Write(addr typedmem.Addr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping := m.findMapping(addr)
	if mapping == nil {
		return fmt.Errorf("memvm: write at %#x: unmapped", uint64(addr))
	}
	if mapping.perm&Write == 0 {
		return fmt.Errorf("memvm: write at %#x: mapping %#x-%#x is not writable", uint64(addr), uint64(mapping.min), uint64(mapping.max))
	}
	off := int64(addr - mapping.min)
	if off+int64(len(data)) > int64(len(mapping.data)) {
		return fmt.Errorf("memvm: write at %#x, %d bytes: runs past end of mapping %#x-%#x", uint64(addr), len(data), uint64(mapping.min), uint64(mapping.max))
	}
	copy(mapping.data[off:], data)
	return nil
}
