/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package reader implements the zero-copy sliding-window reader spec.md
// §3/§4.4 calls TransportReader: a single fixed binary buffer with a
// [window_start, window_end) region of unconsumed bytes, read from a
// net.Conn and handed line-by-line to the HTTP/1.1 parser.
//
// Grounded on conn_reader.go's connReader (background-read bookkeeping)
// generalized from "read one byte ahead for pipelining" into "read a
// whole buffer's worth, then let the parser walk it a line at a time."
package reader

import (
	"bytes"
	"errors"
	"io"
	"net"
)

// ErrBufferFull is returned by ReadLine when no line terminator appears
// before the window fills the whole buffer — the caller (the parser)
// turns this into a 431 per spec.md §4.5/§8 ("Headers exactly filling
// the parse buffer return 431 rather than silently truncating").
var ErrBufferFull = errors.New("reader: no line terminator found before buffer exhausted")

// TransportReader is a sliding window over a single fixed binary buffer.
// Invariant: 0 <= windowStart <= windowEnd <= len(buffer).
type TransportReader struct {
	stream net.Conn
	buffer []byte

	windowStart int
	windowEnd   int
}

// New wraps stream with a sliding window over buffer. buffer's lifetime
// is owned by the caller (it is the bufpool-provided header buffer of
// spec.md §4.3); TransportReader never reallocates it.
func New(stream net.Conn, buffer []byte) *TransportReader {
	return &TransportReader{stream: stream, buffer: buffer}
}

// Reset rebinds the reader to a new stream and clears the window, so one
// TransportReader value can be reused across the context-pool's
// connections (spec.md §4.3, §3 Buffers are owned by the HttpContext).
func (r *TransportReader) Reset(stream net.Conn) {
	r.stream = stream
	r.windowStart = 0
	r.windowEnd = 0
}

// Available reports how many unconsumed bytes currently sit in the
// window.
func (r *TransportReader) Available() int { return r.windowEnd - r.windowStart }

// Buffer exposes the whole backing array, for callers (the parser's
// entity-body phase) that need to know how far past the window the
// usable capacity extends.
func (r *TransportReader) Buffer() []byte { return r.buffer }

// Window returns the current unconsumed slice [windowStart, windowEnd).
func (r *TransportReader) Window() []byte {
	return r.buffer[r.windowStart:r.windowEnd]
}

// Advance moves windowStart forward by n, marking n bytes as consumed.
// It panics if n would push windowStart past windowEnd — that is always
// a parser bug, never a runtime condition to recover from.
func (r *TransportReader) Advance(n int) {
	if n < 0 || r.windowStart+n > r.windowEnd {
		panic("reader: Advance past windowEnd")
	}
	r.windowStart += n
}

// FillBuffer issues one Read into the unused tail [windowEnd, len(buffer))
// and advances windowEnd by however much was read. It returns the number
// of bytes read and any error from the underlying stream, including
// io.EOF when the remote end closed the connection (spec.md §4.4 "If the
// pre-buffer read returns 0 bytes, the remote end closed the connection").
func (r *TransportReader) FillBuffer() (int, error) {
	if r.windowEnd >= len(r.buffer) {
		r.CompactBufferWindow()
		if r.windowEnd >= len(r.buffer) {
			return 0, ErrBufferFull
		}
	}
	n, err := r.stream.Read(r.buffer[r.windowEnd:])
	r.windowEnd += n
	return n, err
}

// CompactBufferWindow memmoves [windowStart, windowEnd) to index 0 and
// resets windowStart to 0, reclaiming space at the tail of the buffer
// for the next FillBuffer.
func (r *TransportReader) CompactBufferWindow() {
	if r.windowStart == 0 {
		return
	}
	n := copy(r.buffer, r.buffer[r.windowStart:r.windowEnd])
	r.windowStart = 0
	r.windowEnd = n
}

// ReadLine returns the next CRLF- or LF-terminated line from the window,
// reading more from the stream as needed, without the terminator. The
// returned slice aliases the reader's buffer and is only valid until the
// next call that mutates the window (Advance/FillBuffer/CompactBufferWindow).
func (r *TransportReader) ReadLine() ([]byte, error) {
	for {
		if idx := bytes.IndexByte(r.Window(), '\n'); idx >= 0 {
			line := r.buffer[r.windowStart : r.windowStart+idx]
			line = bytes.TrimSuffix(line, []byte{'\r'})
			r.Advance(idx + 1)
			return line, nil
		}
		if r.windowEnd >= len(r.buffer) {
			r.CompactBufferWindow()
			if r.windowEnd >= len(r.buffer) {
				return nil, ErrBufferFull
			}
		}
		n, err := r.FillBuffer()
		if n == 0 && err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

// ReadN fills dst completely: it copies from the window first, then
// reads the remainder straight from the stream.
func (r *TransportReader) ReadN(dst []byte) error {
	n := copy(dst, r.Window())
	r.Advance(n)
	for n < len(dst) {
		read, err := r.stream.Read(dst[n:])
		if read > 0 {
			n += read
		}
		if err != nil {
			return err
		}
	}
	return nil
}
