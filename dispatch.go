/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"io"

	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/mux"
)

// dispatch implements spec.md §4.6: answer Expect: 100-continue if
// owed, look the Host header up in the listener's Router, invoke the
// matched handler, or synthesize a 404 response if none matches.
// Whatever the handler left unread of the request body is drained
// later, by drainRequestBody in serveConn's Writing state, once the
// response has been written.
//
// Grounded on server_handler.go's request-dispatch loop, generalized
// from the teacher's single static handler to this spec's per-vhost
// Router lookup.
func dispatch(ctx *HttpContext, router *mux.Router) {
	if ctx.Request.State.Expect100 {
		if err := writeContinue(ctx); err != nil {
			ctx.Flags.set(FlagClosing)
			return
		}
	}

	host := ctx.Request.State.Host
	handler, ok := router.Lookup(host)
	if !ok {
		ctx.Response.WriteStatus(404)
		ctx.Response.Body.SetSized(newStringReader("not found"), 9, "text/plain; charset=utf-8")
		return
	}

	if ctx.Request.State.Method == "HEAD" {
		ctx.Flags.set(FlagHeadRequest)
	}

	func() {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// spec.md §4.6 step 8 / §4.8: a handler "terminate" signal is
			// honored distinctly from an ordinary fault — an attached
			// status wins outright, a zero status clears whatever the
			// handler had already built. Either way the connection is
			// forced closed below.
			if term, ok := rec.(terminateSignal); ok {
				switch {
				case term.status != 0:
					ctx.Response.StatusCode = term.status
				case !ctx.Response.headersSent:
					for k := range ctx.Response.Header {
						delete(ctx.Response.Header, k)
					}
					ctx.Response.Body.reset()
					ctx.Response.StatusCode = 0
				}
			} else if !ctx.Response.headersSent {
				ctx.Response = HttpResponse{StatusCode: 500, Header: ctx.Response.Header}
				ctx.Response.Body.SetSized(newStringReader("internal server error"), 21, "text/plain; charset=utf-8")
			}
			ctx.Flags.set(FlagClosing)
			ctx.Request.State.Keepalive = false
			ctx.Response.Header.Set(hdr.Connection, "close")
		}()
		handler.ServeHTTP(ctx, ctx)
	}()
}

// writeContinue sends the interim "100 Continue" status line spec.md
// §4.6 describes for a request bearing Expect: 100-continue, before the
// handler (which may choose to read the body) ever runs.
func writeContinue(ctx *HttpContext) error {
	_, err := io.WriteString(ctx.Transport.Conn, "HTTP/1.1 100 Continue\r\n\r\n")
	ctx.Flags.clear(FlagExpectPending)
	return err
}

// drainRequestBody discards whatever the handler left unread in the
// request entity body, using the connection-scoped Discard buffer,
// so the bytes don't get mistaken for the start of the next pipelined
// request-line (spec.md §4.6 "drain before writing the next response").
func drainRequestBody(ctx *HttpContext) error {
	if ctx.Request.Body == nil {
		return nil
	}
	_, err := io.CopyBuffer(io.Discard, ctx.Request.Body, ctx.Buffers.Discard)
	return err
}

type stringReader struct {
	s string
	i int
}

func newStringReader(s string) *stringReader { return &stringReader{s: s} }

func (r *stringReader) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.i:])
	r.i += n
	return n, nil
}

func (r *stringReader) Bytes() []byte { return []byte(r.s[r.i:]) }
