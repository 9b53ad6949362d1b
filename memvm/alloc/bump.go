// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alloc supplies typedmem.AllocFunc implementations for memvm VMs.
package alloc

import (
	"fmt"

	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

// Bump returns a typedmem.AllocFunc that satisfies typedmem.New by mapping
// a fresh, read-write memvm.Memory region for every call. It never reuses
// or frees a region: the "bump" in the name is memvm.Memory.Map's own
// monotonically increasing cursor, not a pool this function manages.
func Bump() typedmem.AllocFunc {
	return func(vm typedmem.VM, size int64) (typedmem.Addr, error) {
		mem, ok := vm.(*memvm.Memory)
		if !ok {
			return 0, fmt.Errorf("memvm/alloc: Bump requires a *memvm.Memory, got %T", vm)
		}
		return mem.Map(size, memvm.Read|memvm.Write)
	}
}
