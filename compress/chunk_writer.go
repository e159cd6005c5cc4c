/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package compress implements spec.md §4.6's response pipeline body
// framing: chunked transfer encoding and the gzip/deflate/brotli
// compressor hand-off.
//
// Grounded on chunk_writer.go's chunkWriter (hex-length-prefixed chunk
// framing, final zero-chunk) generalized to write to any io.Writer
// instead of a connection's fixed bufio.Writer.
package compress

import (
	"fmt"
	"io"
)

var crlf = []byte("\r\n")
var finalChunk = []byte("0\r\n\r\n")

// ChunkWriter frames writes as HTTP/1.1 chunked transfer encoding:
// "hex CRLF data CRLF", terminated by "0 CRLF CRLF" on Close. Used
// whenever the response body's length is unknown (spec.md §4.6, §6
// "Wire protocol").
type ChunkWriter struct {
	w      io.Writer
	closed bool
}

func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{w: w}
}

func (c *ChunkWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(c.w, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := c.w.Write(crlf); err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the terminating zero-length chunk. It is safe to call at
// most once; a second call is a no-op.
func (c *ChunkWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_, err := c.w.Write(finalChunk)
	return err
}
