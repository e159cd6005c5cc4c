/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filetransport

import (
	"fmt"

	"github.com/badu/httpd/hdr"
)

// Resolve turns a parsed Range into a concrete (start, length) pair against
// a representation of the given size, per RFC 7233 §2.1. The returned
// length is clamped to the representation size.
func (r Range) Resolve(size int64) (start, length int64, ok bool) {
	switch r.Kind {
	case KindFull:
		if r.Start >= size {
			return 0, 0, false
		}
		end := r.End
		if end >= size {
			end = size - 1
		}
		return r.Start, end - r.Start + 1, true
	case KindFromStart:
		if r.Start >= size {
			return 0, 0, false
		}
		return r.Start, size - r.Start, true
	case KindSuffix:
		n := r.N
		if n > size {
			n = size
		}
		if n == 0 {
			return 0, 0, false
		}
		return size - n, n, true
	default:
		return 0, 0, false
	}
}

// ContentRange renders the "bytes start-end/size" value for a
// Content-Range response header.
func (r Range) ContentRange(size int64) string {
	start, length, ok := r.Resolve(size)
	if !ok {
		return fmt.Sprintf("bytes */%d", size)
	}
	return fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size)
}

// MimeHeader builds the headers for a single-range 206 response body.
func (r Range) MimeHeader(contentType string, size int64) hdr.Header {
	return hdr.Header{
		hdr.ContentRange: {r.ContentRange(size)},
		hdr.ContentType:  {contentType},
	}
}
