/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package httpd is an HTTP/1.1 server engine: connection lifecycle,
// HTTP/1.1 parsing, the per-connection context pool, and the response
// pipeline described by spec.md.
package httpd

import (
	"time"

	"github.com/badu/httpd/tport"
)

type (
	// TCPConfig mirrors spec.md §6's tcp: block.
	TCPConfig struct {
		KeepaliveSec         int
		KeepaliveIntervalSec int
		MaxRecvSize          int
		MaxConnections        int
		Backlog              int
		TxBuffer             int
		RxBuffer             int
	}

	// CompressionConfig mirrors spec.md §6's http.compression: block.
	CompressionConfig struct {
		Enabled bool
		MaxSize int64
		MinSize int64
	}

	// HTTPConfig mirrors spec.md §6's http: block.
	HTTPConfig struct {
		DefaultVersion         string
		MaxEntitySize          int64
		HeaderBufSize          int
		MaxRequestHeaderCount  int
		ResponseHeaderBufSize  int
		KeepaliveMs            int
		RecvTimeoutMs          int
		SendTimeoutMs          int
		MultipartMaxBufSize    int64
		MultipartMaxSize       int64
		MaxUploadsPerRequest   int
		Compression            CompressionConfig
	}

	// Config is the logical configuration object of spec.md §6. No
	// YAML/JSON loader is provided here — that is an external
	// collaborator's job (§1 Non-goals); embedders populate this struct
	// however they like.
	Config struct {
		TCP     TCPConfig
		HTTP    HTTPConfig
		Sockets tport.SocketOptions
	}
)

// DefaultConfig mirrors the teacher's own hard-coded constants
// (types_server.go's DefaultMaxHeaderBytes and friends) scaled to this
// spec's richer knob set.
func DefaultConfig() Config {
	return Config{
		TCP: TCPConfig{
			KeepaliveSec:   15,
			MaxRecvSize:    1 << 20,
			MaxConnections: 4096,
			Backlog:        128,
			TxBuffer:       64 << 10,
			RxBuffer:       64 << 10,
		},
		HTTP: HTTPConfig{
			DefaultVersion:        "HTTP/1.1",
			MaxEntitySize:         32 << 20,
			HeaderBufSize:         8 << 10,
			MaxRequestHeaderCount: 100,
			ResponseHeaderBufSize: 4 << 10,
			KeepaliveMs:           int(20 * time.Second / time.Millisecond),
			RecvTimeoutMs:         int(30 * time.Second / time.Millisecond),
			SendTimeoutMs:         int(30 * time.Second / time.Millisecond),
			MultipartMaxBufSize:   32 << 20,
			MultipartMaxSize:      256 << 20,
			MaxUploadsPerRequest:  16,
			Compression: CompressionConfig{
				Enabled: true,
				MinSize: 256,
				MaxSize: 8 << 20,
			},
		},
		Sockets: tport.SocketOptions{
			ReuseAddress: true,
			Backlog:      128,
		},
	}
}
