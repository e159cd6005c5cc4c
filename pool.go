/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"github.com/badu/httpd/bufpool"
	"github.com/badu/httpd/metrics"
	"github.com/badu/httpd/tport"
)

// ContextPool is spec.md §4.3's multi-producer/multi-consumer context
// pool: a soft-capped reservoir of *HttpContext values, each with its
// connection-scoped buffers allocated lazily on first use rather than
// at pool-construction time (spec.md's "deferred buffer allocation").
//
// Grounded on bufpool.Pool's sync.Pool-of-size-classes approach, one
// level up: where bufpool pools []byte, ContextPool pools the whole
// per-connection object graph built on top of it. A buffered channel
// gives the soft cap spec.md asks for ("construct beyond the cap under
// load, but never retain more than the cap at rest") for free: Release
// drops the value on the floor (letting the GC reclaim it) when the
// channel is full.
type ContextPool struct {
	ch      chan *HttpContext
	bufPool *bufpool.Pool
	cfg     Config
	metrics *metrics.Metrics
}

// NewContextPool builds a pool with the given soft cap. A cap of 0 or
// less selects a default cap of 4096 (a generous default instead of 0,
// since an unbuffered channel would make Release block).
func NewContextPool(cfg Config, softCap int, bp *bufpool.Pool, m *metrics.Metrics) *ContextPool {
	if softCap <= 0 {
		softCap = 4096
	}
	return &ContextPool{
		ch:      make(chan *HttpContext, softCap),
		bufPool: bp,
		cfg:     cfg,
		metrics: m,
	}
}

// Acquire returns an idle context from the pool, or constructs a new
// one if the pool is currently empty (spec.md: "never blocks the
// accepting goroutine waiting for a pooled context").
func (p *ContextPool) Acquire() *HttpContext {
	select {
	case c := <-p.ch:
		if p.metrics != nil {
			p.metrics.PooledContexts.Dec()
		}
		return c
	default:
		return &HttpContext{pool: p}
	}
}

// Prepare allocates this context's connection-scoped buffers and binds
// it to the freshly-accepted transport connection. Separated from
// Acquire because buffer allocation is deferred until a context is
// actually about to serve a connection (spec.md's "deferred buffer
// allocation").
func (p *ContextPool) Prepare(c *HttpContext, t *tport.Context) {
	buffers := newBuffers(p.bufPool, p.cfg)
	c.InitializeContext(t, buffers)
}

// Release returns c to the pool after its connection has closed. If
// the pool is at its soft cap, c (and its buffers) are dropped instead
// of retained, per spec.md's soft-cap semantics.
func (p *ContextPool) Release(c *HttpContext) {
	c.release()
	select {
	case p.ch <- c:
		if p.metrics != nil {
			p.metrics.PooledContexts.Inc()
		}
	default:
	}
}
