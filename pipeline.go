/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/badu/httpd/compress"
	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/sniff"
)

var statusText = map[int]string{
	100: "Continue", 101: "Switching Protocols",
	200: "OK", 201: "Created", 202: "Accepted", 204: "No Content", 206: "Partial Content",
	301: "Moved Permanently", 302: "Found", 303: "See Other", 304: "Not Modified", 307: "Temporary Redirect", 308: "Permanent Redirect",
	400: "Bad Request", 401: "Unauthorized", 403: "Forbidden", 404: "Not Found", 405: "Method Not Allowed",
	406: "Not Acceptable", 408: "Request Timeout", 409: "Conflict", 410: "Gone", 411: "Length Required",
	413: "Payload Too Large", 414: "URI Too Long", 415: "Unsupported Media Type", 416: "Range Not Satisfiable",
	417: "Expectation Failed", 426: "Upgrade Required", 431: "Request Header Fields Too Large",
	500: "Internal Server Error", 501: "Not Implemented", 502: "Bad Gateway", 503: "Service Unavailable", 505: "HTTP Version Not Supported",
}

func reasonPhrase(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Status"
}

// writePipeline is spec.md §4.6's response pipeline: it decides between
// chunked and length-delimited framing, engages compression when the
// conditions hold, sniffs an unset Content-Type, and flushes the status
// line, headers, and body to the connection.
//
// Grounded on response_server.go's header-then-body write sequencing,
// generalized from the teacher's single in-memory body to this spec's
// three-way body slot (ResponseBody.kind) and from no compression
// support at all to compress.NegotiateEncoding/compress.NewEncoder.
func writePipeline(ctx *HttpContext, cfg CompressionConfig) error {
	resp := &ctx.Response
	conn := ctx.Transport.Conn

	if resp.StatusCode == 0 {
		resp.StatusCode = 200
	}

	var bodyBytes []byte
	if resp.Body.kind == bodySized {
		if br, ok := resp.Body.reader.(interface{ Bytes() []byte }); ok {
			bodyBytes = br.Bytes()
		}
	}

	contentType := resp.Body.contentType
	if contentType == "" {
		if bodyBytes != nil {
			contentType = sniff.DetectContentType(bodyBytes)
		} else {
			contentType = "application/octet-stream"
		}
		resp.Header.Set(hdr.ContentType, contentType)
	} else if resp.Header.Get(hdr.ContentType) == "" {
		resp.Header.Set(hdr.ContentType, contentType)
	}

	codec := compress.Identity
	if cfg.Enabled && !ctx.Flags.has(FlagDisableCompression) &&
		compress.Compressible(contentType) &&
		resp.Body.kind != bodyUnset &&
		(resp.Body.kind == bodyChunked || resp.Body.length >= cfg.MinSize) &&
		(resp.Body.kind == bodyChunked || resp.Body.length <= cfg.MaxSize) {
		codec = compress.NegotiateEncoding(ctx.Request.Header.Get(hdr.AcceptEncoding), []compress.Codec{compress.Brotli, compress.Gzip, compress.Deflate})
	}

	useChunked := resp.Body.kind == bodyChunked || codec != compress.Identity
	if !ctx.Request.State.Keepalive {
		useChunked = false
	}

	if useChunked {
		resp.Header.Set(hdr.TransferEncoding, "chunked")
		resp.Header.Del(hdr.ContentLength)
	} else if resp.Body.kind == bodySized {
		resp.Header.Set(hdr.ContentLength, strconv.FormatInt(resp.Body.length, 10))
	}
	if codec != compress.Identity {
		resp.Header.Set(hdr.ContentEncoding, string(codec))
	}
	if !ctx.Request.State.Keepalive {
		resp.Header.Set(hdr.Connection, "close")
	}
	for _, c := range resp.Cookies {
		resp.Header.Add(hdr.SetCookieHeader, c)
	}

	// Accumulate the status line and headers in the connection's pinned
	// response-header buffer and flush them in a single write, rather
	// than one syscall per header line (spec.md §3's ResponseHeader
	// accumulator).
	head := bytes.NewBuffer(ctx.Buffers.ResponseHeader[:0])
	fmt.Fprintf(head, "HTTP/%d.%d %d %s\r\n", ctx.Request.State.ProtoMajor, ctx.Request.State.ProtoMinor, resp.StatusCode, reasonPhrase(resp.StatusCode))
	if err := resp.Header.Write(head); err != nil {
		return err
	}
	head.WriteString("\r\n")
	if _, err := conn.Write(head.Bytes()); err != nil {
		return err
	}
	resp.headersSent = true

	if ctx.Flags.has(FlagHeadRequest) || resp.Body.kind == bodyUnset {
		return nil
	}

	var out io.Writer = conn
	var chunkWriter *compress.ChunkWriter
	if useChunked {
		chunkWriter = compress.NewChunkWriter(conn)
		out = chunkWriter
	}

	if codec != compress.Identity {
		enc, err := compress.NewEncoder(out, codec)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, resp.Body.reader); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	} else if _, err := io.Copy(out, resp.Body.reader); err != nil {
		return err
	}

	if chunkWriter != nil {
		return chunkWriter.Close()
	}
	return nil
}

// writeSwitchingProtocols sends the 101 response spec.md §4.6 step 7's
// DangerousChangeProtocol promises, using whatever response headers the
// handler already set (Upgrade, Connection: Upgrade, and so on) before
// requesting the handoff.
func writeSwitchingProtocols(ctx *HttpContext) error {
	resp := &ctx.Response
	conn := ctx.Transport.Conn

	head := bytes.NewBuffer(ctx.Buffers.ResponseHeader[:0])
	fmt.Fprintf(head, "HTTP/%d.%d 101 %s\r\n", ctx.Request.State.ProtoMajor, ctx.Request.State.ProtoMinor, reasonPhrase(101))
	if err := resp.Header.Write(head); err != nil {
		return err
	}
	head.WriteString("\r\n")
	if _, err := conn.Write(head.Bytes()); err != nil {
		return err
	}
	resp.headersSent = true
	return nil
}
