/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"io"

	"github.com/badu/httpd/filetransport"
	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/mime"
	"github.com/badu/httpd/url"
)

// RequestState holds spec.md §3's HttpRequest.user_state: everything
// the parser derives from the request-line and header block before any
// handler runs. It is a plain value embedded in HttpRequest rather than
// a separate pinned allocation — the teacher's types_request.go Request
// struct is the model, generalized to carry the extra fields spec.md's
// dispatch table names (Range, Expect100, Origin, charset, boundary).
type RequestState struct {
	Method        string
	RequestTarget string
	ProtoMajor    int
	ProtoMinor    int
	URI           *url.URL
	Host          string
	hostIsAbsolute bool // Host came from an absolute-form target; a Host header must then match it

	Keepalive     bool
	ContentLength int64
	ContentType   string
	Charset       string
	Boundary      string
	TransferChunked bool

	Expect100 bool
	Range     filetransport.Range
	HasRange  bool

	Referer   *url.URL
	Origin    string
	UserAgent string

	RemoteEndpoint string
}

// HttpRequest is spec.md §3's HttpRequest: the read-side view of one
// request-response cycle, reset between pipelined requests on the same
// connection by BeginRequest/EndRequest (spec.md §4.3).
type HttpRequest struct {
	State  RequestState
	Header hdr.Header

	Cookies        map[string]string
	Accept         []string
	AcceptLanguage []string
	Uploads        []*mime.FileHeader

	// Body is the entity-body view prepared by parsePhase3: the bytes
	// already pulled into the header buffer during header parsing,
	// chained with whatever remains to be read from the connection.
	Body io.Reader
}

func (r *HttpRequest) reset() {
	r.State = RequestState{}
	for k := range r.Header {
		delete(r.Header, k)
	}
	for k := range r.Cookies {
		delete(r.Cookies, k)
	}
	r.Accept = r.Accept[:0]
	r.AcceptLanguage = r.AcceptLanguage[:0]
	for _, fh := range r.Uploads {
		_ = fh.Remove()
	}
	r.Uploads = r.Uploads[:0]
	r.Body = nil
}
