/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"github.com/badu/httpd/bufpool"
	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/mux"
	"github.com/badu/httpd/reader"
	"github.com/badu/httpd/tport"
)

// ContextFlags is the bitfield spec.md §3's HttpContext.user_state calls
// out ("a small set of booleans"): whether this request disables
// compression, whether Expect: 100-continue is still owed, whether an
// alternate-protocol handoff was requested, and so on.
type ContextFlags uint32

const (
	FlagDisableCompression ContextFlags = 1 << iota
	FlagExpectPending
	FlagAlternateProtocol
	FlagClosing
	FlagHeadRequest
)

func (f *ContextFlags) set(bit ContextFlags)      { *f |= bit }
func (f *ContextFlags) clear(bit ContextFlags)     { *f &^= bit }
func (f ContextFlags) has(bit ContextFlags) bool   { return f&bit != 0 }

// Buffers is spec.md §3's ContextLockedBufferManager / §4.3's pinned
// per-connection buffers. The teacher's C# ancestor pins these because
// its runtime's GC can relocate objects mid-syscall; Go's byte slices
// already have a stable backing array for their lifetime, so "pinning"
// here just means "allocated once per connection and reused across every
// pipelined request on it" rather than a GC API call.
type Buffers struct {
	RequestHeader  []byte // transport read buffer, owned by reader.TransportReader
	ResponseHeader []byte // status-line + header accumulator
	Chunk          []byte // chunk-size hex scratch space
	Discard        []byte // sink for draining an unread request body
	FormData       []byte // multipart decode scratch space
}

func newBuffers(bp *bufpool.Pool, cfg Config) *Buffers {
	return &Buffers{
		RequestHeader:  bp.Get(cfg.HTTP.HeaderBufSize),
		ResponseHeader: bp.Get(cfg.HTTP.ResponseHeaderBufSize),
		Chunk:          bp.Get(32),
		Discard:        bp.Get(8 << 10),
		FormData:       bp.Get(int(minI64(cfg.HTTP.MultipartMaxBufSize, 64<<10))),
	}
}

func (b *Buffers) release(bp *bufpool.Pool) {
	bp.Put(b.RequestHeader)
	bp.Put(b.ResponseHeader)
	bp.Put(b.Chunk)
	bp.Put(b.Discard)
	bp.Put(b.FormData)
	*b = Buffers{}
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Handler is the application's request callback (spec.md §3's
// HttpEvent). It is a function type rather than an interface — the
// teacher's own server_handler.go favors a narrow function-typed
// handler over a Java/C#-style object — adapted here to the
// per-connection *HttpContext this spec threads through the whole
// lifecycle instead of a (ResponseWriter, *Request) pair.
type Handler func(ctx *HttpContext)

// muxHandler adapts a Handler to mux.Handler so it can be registered
// into a mux.ServiceHost without mux importing this package (mux.
// ResponseWriter and mux.Request are both bare interface{} precisely so
// a *HttpContext satisfies them structurally).
type muxHandler struct{ h Handler }

func (m muxHandler) ServeHTTP(_ mux.ResponseWriter, r mux.Request) {
	m.h(r.(*HttpContext))
}

// AsMuxHandler wraps h for registration via mux.ServiceHost.
func AsMuxHandler(h Handler) mux.Handler { return muxHandler{h: h} }

// HttpContext is spec.md §3's HttpContext: the single object threaded
// through parsing, dispatch, and response flushing for one request,
// reused across every pipelined request on a connection and returned to
// the ContextPool when the connection closes.
//
// Grounded on types_server.go's per-connection state bundle, split here
// into pool-scoped buffers (allocated once per connection) and
// request-scoped Request/Response (reset between pipelined requests by
// BeginRequest/EndRequest).
type HttpContext struct {
	pool *ContextPool

	Transport *tport.Context
	Reader    *reader.TransportReader
	Buffers   *Buffers

	Request  HttpRequest
	Response HttpResponse
	Flags    ContextFlags

	// AlternateProtocol, when non-nil after a handler runs, is the
	// continuation the connection loop hands the connection's
	// *tport.Context to after writing a 101 Switching Protocols
	// response in place of the handler's own response (spec.md §4.6's
	// DangerousChangeProtocol / §9 AlternateProtocol continuation).
	AlternateProtocol func(conn *tport.Context)
}

// InitializeContext binds a freshly-accepted connection to this
// context for its whole lifetime (spec.md §4.3's per-connection
// initialization, run once per Accept).
func (c *HttpContext) InitializeContext(t *tport.Context, buffers *Buffers) {
	c.Transport = t
	c.Buffers = buffers
	c.Reader = reader.New(t.Conn, buffers.RequestHeader)
	c.Flags = 0
}

// BeginRequest resets the request/response scratch state before
// parsing the next pipelined request (spec.md §4.3).
func (c *HttpContext) BeginRequest() {
	c.Request.reset()
	c.Response.reset()
	c.Flags &^= FlagExpectPending | FlagAlternateProtocol | FlagHeadRequest
	c.AlternateProtocol = nil
	if c.Request.Header == nil {
		c.Request.Header = make(hdr.Header)
	}
	if c.Request.Cookies == nil {
		c.Request.Cookies = make(map[string]string)
	}
	if c.Response.Header == nil {
		c.Response.Header = make(hdr.Header)
	}
}

// EndRequest clears per-request-only state once the response has been
// flushed, leaving the connection-scoped buffers intact for the next
// pipelined request.
func (c *HttpContext) EndRequest() {
	c.Request.reset()
	c.Response.reset()
}

// DangerousChangeProtocol implements spec.md §4.6 step 7's handler
// escape hatch: the connection loop replies 101 Switching Protocols
// using whatever response headers the handler has already set (e.g.
// Upgrade/Connection), then hands the raw transport to continuation
// once the request's pooled context has been released.
func (c *HttpContext) DangerousChangeProtocol(continuation func(conn *tport.Context)) {
	c.AlternateProtocol = continuation
	c.Flags.set(FlagAlternateProtocol)
}

// terminateSignal is the payload TerminateConnection panics with;
// dispatch's recover distinguishes it from an ordinary handler fault.
type terminateSignal struct{ status int }

// TerminateConnection implements spec.md §4.6 step 8 / §4.8's handler
// "terminate" signal: unwinds out of the handler, optionally overriding
// the response status (statusCode == 0 clears any response already
// built instead), and forces the connection closed once the response
// is written.
func (c *HttpContext) TerminateConnection(statusCode int) {
	panic(terminateSignal{status: statusCode})
}

// release returns the context's connection-scoped buffers to the pool
// and clears transport pointers; called once the connection closes.
func (c *HttpContext) release() {
	if c.Buffers != nil {
		c.Buffers.release(c.pool.bufPool)
	}
	c.Transport = nil
	c.Reader = nil
	c.Buffers = nil
	c.AlternateProtocol = nil
}
