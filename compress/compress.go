/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package compress

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// Codec identifies a response-compression algorithm.
type Codec string

const (
	Identity Codec = "identity"
	Gzip     Codec = "gzip"
	Deflate  Codec = "deflate"
	Brotli   Codec = "br"
)

// Compressible content types the response pipeline will engage
// compression for, when the other conditions of spec.md §4.6 hold.
// Grounded on the teacher's sniff package's notion of "detectable"
// textual content types.
var compressibleTypes = map[string]bool{
	"text/html":              true,
	"text/plain":             true,
	"text/css":               true,
	"text/xml":               true,
	"application/json":       true,
	"application/javascript": true,
	"application/xml":        true,
	"image/svg+xml":          true,
}

// Compressible reports whether contentType is worth compressing. A
// content-type with parameters (";charset=...") is matched on its media
// type only.
func Compressible(contentType string) bool {
	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return compressibleTypes[strings.TrimSpace(strings.ToLower(mediaType))]
}

// NegotiateEncoding picks the best codec the client accepts from its
// Accept-Encoding header and the set of codecs the server supports
// (spec.md §6 http.compression). Ties prefer the order given in
// supported. "identity" is always acceptable as a fallback and is never
// itself returned as a chosen compression (callers treat a return of
// Identity as "do not compress").
func NegotiateEncoding(acceptEncoding string, supported []Codec) Codec {
	if acceptEncoding == "" || len(supported) == 0 {
		return Identity
	}
	type weighted struct {
		codec Codec
		q     float64
	}
	var offers []weighted
	for _, part := range strings.Split(acceptEncoding, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		q := 1.0
		if i := strings.IndexByte(part, ';'); i >= 0 {
			name = strings.TrimSpace(part[:i])
			params := part[i+1:]
			if j := strings.Index(params, "q="); j >= 0 {
				if v, err := strconv.ParseFloat(strings.TrimSpace(params[j+2:]), 64); err == nil {
					q = v
				}
			}
		}
		if q <= 0 {
			continue
		}
		offers = append(offers, weighted{Codec(strings.ToLower(name)), q})
	}
	rank := func(c Codec) int {
		for i, s := range supported {
			if s == c {
				return i
			}
		}
		return len(supported)
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].q != offers[j].q {
			return offers[i].q > offers[j].q
		}
		return rank(offers[i].codec) < rank(offers[j].codec)
	})

	supportedSet := make(map[Codec]bool, len(supported))
	for _, c := range supported {
		supportedSet[c] = true
	}
	for _, o := range offers {
		if o.codec == "*" {
			for _, c := range supported {
				return c
			}
		}
		if supportedSet[o.codec] {
			return o.codec
		}
	}
	return Identity
}

// NewEncoder wraps w with the compressor for codec. The returned
// io.WriteCloser's Close must be called to flush trailing bytes; it does
// not close w.
func NewEncoder(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case Deflate:
		return flate.NewWriter(w, flate.DefaultCompression)
	case Brotli:
		return brotli.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
