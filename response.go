/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"fmt"
	"io"

	"github.com/badu/httpd/hdr"
)

// bodyKind discriminates ResponseBody's single-assignment slot (spec.md
// §3 HttpResponse.user_state: "a seekable byte source of known length,
// an in-memory reader, or a chunked stream — never more than one").
type bodyKind int

const (
	bodyUnset bodyKind = iota
	bodySized          // known Content-Length, served from an io.ReadSeeker or io.Reader
	bodyChunked        // length unknown up front, framed with Transfer-Encoding: chunked
)

// ResponseBody is the response pipeline's output slot. Exactly one of
// SetSized/SetChunked may be called per request; calling either a second
// time before EndRequest clears the slot panics — the teacher's own
// response.go enforces the same "write header once" discipline via
// wroteHeader, generalized here to the body assignment itself.
type ResponseBody struct {
	kind        bodyKind
	reader      io.Reader
	length      int64 // -1 when unknown (bodyChunked)
	contentType string
}

func (b *ResponseBody) reset() {
	b.kind = bodyUnset
	b.reader = nil
	b.length = 0
	b.contentType = ""
}

// SetSized assigns a response body of known length: a seekable file, a
// byte buffer, anything the caller can size up front. length may be 0
// for an empty body.
func (b *ResponseBody) SetSized(r io.Reader, length int64, contentType string) {
	if b.kind != bodyUnset {
		panic("httpd: response body already assigned")
	}
	b.kind = bodySized
	b.reader = r
	b.length = length
	b.contentType = contentType
}

// SetChunked assigns a response body whose length is not known ahead of
// time; the pipeline frames it with chunked transfer-coding (spec.md
// §4.6's "chunking the response body" / compress.ChunkWriter).
func (b *ResponseBody) SetChunked(r io.Reader, contentType string) {
	if b.kind != bodyUnset {
		panic("httpd: response body already assigned")
	}
	b.kind = bodyChunked
	b.reader = r
	b.length = -1
	b.contentType = contentType
}

// HttpResponse is spec.md §3's HttpResponse: the status line, header
// accumulator, and body slot built up by a handler before the pipeline
// flushes it. Grounded on response.go's response struct, trimmed of the
// teacher's http.ResponseWriter plumbing since this spec's handler
// interface is its own (see Handler in context.go).
type HttpResponse struct {
	StatusCode int
	Header     hdr.Header
	Body       ResponseBody

	// Cookies accumulates raw Set-Cookie header values; spec.md's
	// response model treats cookies as ordinary headers rendered at
	// flush time rather than a structured jar (no server-side need to
	// parse them back).
	Cookies []string

	headersSent bool
}

func (r *HttpResponse) reset() {
	r.StatusCode = 0
	for k := range r.Header {
		delete(r.Header, k)
	}
	r.Body.reset()
	r.Cookies = r.Cookies[:0]
	r.headersSent = false
}

// SetCookie appends a Set-Cookie header value in RFC 6265's minimal
// "name=value; Attr=val" form; callers that need Path/Domain/Max-Age
// build the string themselves — this is a thin accumulator, not a
// cookie-attribute builder.
func (r *HttpResponse) SetCookie(nameValue string) {
	r.Cookies = append(r.Cookies, nameValue)
}

// WriteStatus sets the status line's code; a later call replaces an
// earlier one. Calling it once the headers have been sent panics,
// mirroring the teacher's "superfluous WriteHeader call" guard.
func (r *HttpResponse) WriteStatus(code int) {
	if r.headersSent {
		panic(fmt.Sprintf("httpd: status already sent as %d", r.StatusCode))
	}
	r.StatusCode = code
}
