// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmapvm backs typedmem.VM with a single anonymous mmap region, for
// demos and benchmarks that want real page-backed memory instead of a
// Go-heap []byte. Reads and writes outside the region return errors.
package mmapvm

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"golang.org/x/memoverlay/typedmem"
)

// VM is a typedmem.VM backed by one anonymous mmap'd region starting at
// address 1 (address 0 stays reserved as typedmem's null, same convention
// as memvm.Memory).
type VM struct {
	mu   sync.RWMutex
	data []byte
}

// New mmaps an anonymous, read-write region of size bytes.
func New(size int64) (*VM, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmapvm: size must be positive, got %d", size)
	}
	data, err := unix.Mmap(-1, 0, int(size)+1, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmapvm: mmap: %w", err)
	}
	return &VM{data: data}, nil
}

// Close unmaps the region. After Close, every Read and Write returns an
// out-of-range error and Size reports -1.
func (v *VM) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data == nil {
		return nil
	}
	err := unix.Munmap(v.data)
	v.data = nil
	return err
}

// Size returns the number of addressable bytes, one less than the mmap'd
// region's length since address 0 is unused.
func (v *VM) Size() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return int64(len(v.data)) - 1
}

func (v *VM) Read(addr typedmem.Addr, n int64) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if addr == 0 || int64(addr)+n > int64(len(v.data)) {
		return nil, fmt.Errorf("mmapvm: read at %#x, %d bytes: out of range", uint64(addr), n)
	}
	out := make([]byte, n)
	copy(out, v.data[addr:int64(addr)+n])
	return out, nil
}

func (v *VM) Write(addr typedmem.Addr, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if addr == 0 || int64(addr)+int64(len(data)) > int64(len(v.data)) {
		return fmt.Errorf("mmapvm: write at %#x, %d bytes: out of range", uint64(addr), len(data))
	}
	copy(v.data[addr:], data)
	return nil
}
