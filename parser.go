/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/badu/httpd/cookie"
	"github.com/badu/httpd/filetransport"
	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/mime"
	"github.com/badu/httpd/url"
)

var supportedMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

// parsePhase1 parses the request-line: method, target, version (spec.md
// §4.5 phase 1). Grounded on types_request.go's readRequest line-split
// logic, generalized from stdlib request-line parsing since the teacher
// parsed client request lines, not server-received ones.
func parsePhase1(ctx *HttpContext, isTLS bool) error {
	line, err := ctx.Reader.ReadLine()
	if err != nil {
		return err // io.EOF (idle close) or ErrBufferFull, handled by caller
	}
	if len(line) == 0 {
		// RFC 7230 §3.5 allows (and recommends ignoring) a leading blank
		// line before the request-line.
		line, err = ctx.Reader.ReadLine()
		if err != nil {
			return err
		}
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return newParseError(400, "malformed request-line")
	}
	method := string(line[:sp1])
	rest := line[sp1+1:]

	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 < 0 {
		return newParseError(400, "malformed request-line")
	}
	target := string(rest[:sp2])
	version := string(rest[sp2+1:])

	if !supportedMethods[method] {
		return newParseError(405, "unsupported method")
	}

	major, minor, ok := parseHTTPVersion(version)
	if !ok {
		return newParseError(505, "unsupported HTTP version")
	}

	st := &ctx.Request.State
	st.Method = method
	st.RequestTarget = target
	st.ProtoMajor = major
	st.ProtoMinor = minor
	st.Keepalive = major > 1 || (major == 1 && minor >= 1)

	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return newParseError(400, "malformed absolute-form target")
		}
		st.URI = u
		st.Host = normalizeHost(u.Host)
		st.hostIsAbsolute = true
	} else if target == "*" && method == "OPTIONS" {
		st.URI = &url.URL{Path: "*"}
	} else if strings.HasPrefix(target, "/") {
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return newParseError(400, "malformed origin-form target")
		}
		u.Scheme = schemeFor(isTLS)
		st.URI = u
	} else if method == "CONNECT" {
		st.Host = target
	} else {
		return newParseError(400, "unsupported request-target form")
	}

	return nil
}

func schemeFor(isTLS bool) string {
	if isTLS {
		return "https"
	}
	return "http"
}

func parseHTTPVersion(v string) (major, minor int, ok bool) {
	if !strings.HasPrefix(v, "HTTP/") {
		return 0, 0, false
	}
	v = v[len("HTTP/"):]
	dot := strings.IndexByte(v, '.')
	if dot < 0 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(v[:dot])
	min, err2 := strconv.Atoi(v[dot+1:])
	if err1 != nil || err2 != nil || maj != 1 || (min != 0 && min != 1) {
		return 0, 0, false
	}
	return maj, min, true
}

// parsePhase2 parses the header block (spec.md §4.5 phase 2), dispatching
// a handful of well-known headers into RequestState as it goes (the
// "dispatch table" spec.md describes) while collecting everything else
// into the generic hdr.Header map.
//
// Grounded on hdr.HeaderReader's continuation-line folding logic; this
// spec's headers arrive already framed one-per-line by
// reader.TransportReader.ReadLine, so only leading-whitespace
// continuation folding (RFC 7230 §3.2.4, obsolete but still seen in the
// wild) needs handling here.
func parsePhase2(ctx *HttpContext, maxHeaders int) error {
	req := &ctx.Request
	count := 0
	var lastKey string

	for {
		line, err := ctx.Reader.ReadLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			break // blank line terminates the header block
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				return newParseError(400, "header continuation with no preceding header")
			}
			cur := req.Header.Get(lastKey)
			req.Header.Set(lastKey, cur+" "+hdr.TrimString(string(line)))
			continue
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return newParseError(400, "malformed header field")
		}
		name := hdr.CanonicalHeaderKey(string(line[:colon]))
		value := hdr.TrimString(string(line[colon+1:]))
		if !hdr.ValidHeaderFieldName(name) {
			return newParseError(400, "invalid header field name")
		}

		count++
		if count > maxHeaders {
			return newParseError(431, "too many header fields")
		}

		if err := dispatchHeader(req, name, value); err != nil {
			return err
		}
		lastKey = name
	}

	st := &req.State
	if st.ProtoMajor == 1 && st.ProtoMinor == 1 && st.Host == "" {
		return newParseError(400, "missing Host header on HTTP/1.1")
	}
	if st.URI != nil && st.URI.Host == "" {
		st.URI.Host = st.Host
	}
	return nil
}

// dispatchHeader implements spec.md §4.5's per-header-name table.
func dispatchHeader(req *HttpRequest, name, value string) error {
	st := &req.State
	switch name {
	case hdr.Host:
		normalized := normalizeHost(value)
		if st.hostIsAbsolute {
			if st.Host != "" && !strings.EqualFold(st.Host, normalized) {
				return newParseError(400, "Host header does not match absolute-form request target")
			}
		} else if st.Host == "" {
			st.Host = normalized
		}
		req.Header.Add(name, value)
	case hdr.ContentLength:
		if req.Header.Get(name) != "" {
			return newParseError(400, "multiple Content-Length headers")
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return newParseError(400, "invalid Content-Length")
		}
		st.ContentLength = n
		req.Header.Set(name, value)
	case hdr.TransferEncoding:
		if strings.EqualFold(value, "chunked") {
			st.TransferChunked = true
		}
		req.Header.Add(name, value)
	case hdr.ContentType:
		ct, params, err := mime.MIMEParseMediaType(value)
		if err == nil {
			st.ContentType = ct
			st.Charset = params["charset"]
			st.Boundary = params["boundary"]
		} else {
			st.ContentType = value
		}
		req.Header.Set(name, value)
	case hdr.Connection:
		switch {
		case strings.EqualFold(value, "close"):
			st.Keepalive = false
		case strings.EqualFold(value, "keep-alive"):
			st.Keepalive = true
		}
		req.Header.Add(name, value)
	case hdr.Expect:
		if strings.EqualFold(value, "100-continue") {
			st.Expect100 = true
		}
		req.Header.Add(name, value)
	case "Range":
		if st.Method == "GET" {
			if rng, ok := filetransport.ParseRange(value); ok {
				st.Range = rng
				st.HasRange = true
			}
		}
		req.Header.Add(name, value)
	case hdr.Referer:
		if u, err := url.Parse(value); err == nil {
			st.Referer = u
		}
		req.Header.Add(name, value)
	case "Origin":
		st.Origin = value
		req.Header.Add(name, value)
	case hdr.UserAgent:
		st.UserAgent = value
		req.Header.Set(name, value)
	case hdr.CookieHeader:
		for k, v := range cookie.Parse(value) {
			if _, seen := req.Cookies[k]; !seen {
				req.Cookies[k] = v
			}
		}
		req.Header.Add(name, value)
	case hdr.Accept:
		req.Accept = append(req.Accept, splitCommaList(value)...)
		req.Header.Add(name, value)
	case hdr.AcceptLanguage:
		req.AcceptLanguage = append(req.AcceptLanguage, splitCommaList(value)...)
		req.Header.Add(name, value)
	default:
		req.Header.Add(name, value)
	}
	return nil
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if semi := strings.IndexByte(p, ';'); semi >= 0 {
			p = strings.TrimSpace(p[:semi])
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePhase3 prepares the entity-body view (spec.md §4.5 phase 3):
// validates body-bearing-method rules, rejects chunked requests (§9
// "chunked request reception" — a decided Open Question, see
// DESIGN.md), and chains whatever prefix bytes already sit in the
// header buffer with the remaining unread connection bytes.
func parsePhase3(ctx *HttpContext, cfg HTTPConfig) error {
	st := &ctx.Request.State
	req := &ctx.Request

	switch st.Method {
	case "GET", "HEAD", "TRACE":
		if st.ContentLength > 0 || st.TransferChunked {
			return newParseError(400, "request method must not carry a body")
		}
	}

	if st.TransferChunked {
		if st.ProtoMajor == 1 && st.ProtoMinor == 0 {
			return newParseError(400, "chunked transfer-encoding on HTTP/1.0")
		}
		if st.ContentLength > 0 {
			return newParseError(400, "both Content-Length and Transfer-Encoding present")
		}
		// Decided Open Question (DESIGN.md): chunked request bodies are
		// not implemented; rejected distinctly from an ordinary 400 so
		// operators can tell the two apart in ParserRejections.
		return newParseError(501, "chunked request entities are not supported")
	}

	if st.ContentLength > cfg.MaxEntitySize {
		return newParseError(413, "entity too large")
	}
	if req.Header.Get(hdr.ContentType) != "" && st.Boundary != "" && st.ContentLength > cfg.MultipartMaxSize {
		return newParseError(413, "multipart entity too large")
	}

	if st.ContentLength <= 0 {
		req.Body = emptyReader{}
		return nil
	}

	avail := ctx.Reader.Available()
	prefixLen := avail
	if int64(prefixLen) > st.ContentLength {
		prefixLen = int(st.ContentLength)
	}
	prefix := make([]byte, prefixLen)
	copy(prefix, ctx.Reader.Window()[:prefixLen])
	ctx.Reader.Advance(prefixLen)

	remaining := st.ContentLength - int64(prefixLen)
	if remaining == 0 {
		req.Body = bytes.NewReader(prefix)
	} else {
		req.Body = io.MultiReader(bytes.NewReader(prefix), io.LimitReader(ctx.Transport.Conn, remaining))
	}

	if st.ContentType == "multipart/form-data" && st.Boundary != "" {
		return decodeMultipart(ctx, cfg)
	}
	return nil
}

// decodeMultipart eagerly parses a multipart/form-data entity body and
// populates HttpRequest.Uploads, consuming req.Body in the process
// (mirroring the rest of this phase's "prepare the entity view before
// the handler runs" contract, rather than leaving multipart decoding as
// a second pass the handler must remember to trigger).
func decodeMultipart(ctx *HttpContext, cfg HTTPConfig) error {
	req := &ctx.Request
	mr := mime.NewReader(req.Body, req.State.Boundary)
	form, err := mr.ReadForm(cfg.MultipartMaxBufSize)
	if err != nil {
		return newParseError(400, "malformed multipart body")
	}
	for _, fhs := range form.File {
		req.Uploads = append(req.Uploads, fhs...)
	}
	if len(req.Uploads) > cfg.MaxUploadsPerRequest {
		form.RemoveAll()
		return newParseError(413, "too many multipart file parts")
	}
	req.Body = emptyReader{}
	return nil
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

// normalizeHost converts an internationalized Host header's domain label
// to its ASCII (punycode) form, so that "café.example.com" and
// "xn--caf-dma.example.com" both land in mux.Router's exact-match map
// under the same key. Any port suffix is preserved as-is.
func normalizeHost(host string) string {
	hostPart, port := host, ""
	if i := strings.LastIndexByte(host, ':'); i >= 0 && strings.IndexByte(host, ']') < i {
		hostPart, port = host[:i], host[i:]
	}
	ascii, err := idna.Lookup.ToASCII(hostPart)
	if err != nil {
		return host
	}
	return ascii + port
}
