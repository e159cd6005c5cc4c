/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package bufpool is the unmanaged, page-sized buffer provider of
// spec.md §2.1: it hands out fixed-size elements from a small set of
// size classes, backed by sync.Pool so the GC reclaims anything under
// memory pressure instead of the pool pinning memory forever.
//
// Grounded on types_server.go's bufioReaderPool / bufioWriter2kPool /
// bufioWriter4kPool / copyBufPool — a size-classed sync.Pool of
// []byte rather than a single shared pool, so a get/put pair never
// returns a buffer far larger than requested.
package bufpool

import "sync"

// sizeClasses are the fixed buffer sizes the pool hands out. A request
// for a size not listed here gets the next class up.
var sizeClasses = [...]int{4 << 10, 8 << 10, 16 << 10, 64 << 10}

// Pool hands out []byte buffers sized to one of a small number of
// classes. It never allocates more than len(sizeClasses) sync.Pools
// regardless of how many distinct sizes are requested.
type Pool struct {
	pools [len(sizeClasses)]sync.Pool
}

// New builds a ready-to-use Pool. The zero value is NOT ready to use
// because each size class needs its own New func closing over its size.
func New() *Pool {
	p := &Pool{}
	for i, size := range sizeClasses {
		size := size
		p.pools[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
	return p
}

// classFor returns the index of the smallest size class that can hold n
// bytes, or -1 if n exceeds every class (the caller should allocate
// directly in that case; this pool intentionally does not pool
// arbitrarily large buffers).
func classFor(n int) int {
	for i, size := range sizeClasses {
		if n <= size {
			return i
		}
	}
	return -1
}

// Get returns a buffer of at least n bytes, sliced to exactly n.
func (p *Pool) Get(n int) []byte {
	idx := classFor(n)
	if idx < 0 {
		return make([]byte, n)
	}
	b := p.pools[idx].Get().(*[]byte)
	return (*b)[:n]
}

// Put returns a buffer obtained from Get. Buffers larger than the
// largest size class (allocated directly by Get) are simply dropped,
// matching spec.md §4.3's "never allocate a [resource] that will never
// be reused" economy.
func (p *Pool) Put(b []byte) {
	full := b[:cap(b)]
	idx := classFor(cap(full))
	if idx < 0 || sizeClasses[idx] != cap(full) {
		return
	}
	for i := range full {
		full[i] = 0
	}
	p.pools[idx].Put(&full)
}
