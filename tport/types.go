/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package tport implements the two transport providers spec.md §4.2
// describes: a plain TCP listener and a TLS-terminating listener, both
// exposed behind the same Listener interface so the connection lifecycle
// loop never has to know which one it is driving.
package tport

import (
	"crypto/tls"
	"net"
	"time"
)

type (
	// Interface is the (address, port, ssl, cert...) tuple spec.md §3
	// calls TransportInterface. Hash/equality is by value so that many
	// virtual hosts declaring the same interface collapse to one
	// listener (see mux.Planner).
	Interface struct {
		Address            string
		Port               int
		SSL                bool
		CertFile           string
		KeyFile            string
		ClientCertRequired bool
		UseOSCiphers       bool
		TCPNoDelay         bool
	}

	// SocketOptions are applied once at bind time (§4.2).
	SocketOptions struct {
		ReuseAddress bool
		ReusePort    bool
		SendBuffer   int
		RecvBuffer   int
		Backlog      int
	}

	// SchedulingMode names the two scheduling modes of §5. PlainListener
	// records one in its Sched field, but nothing reads it: the server's
	// accept loop runs every accepted connection on its own goroutine,
	// whatever the mode.
	SchedulingMode int

	// SecurityInfo is the lazily-computed, cached-for-the-connection's-
	// lifetime record spec.md §4.2/§9 describes.
	SecurityInfo struct {
		Protocol        string
		CipherSuite     uint16
		NegotiatedALPN  string
		PeerCertPresent bool
		MutualAuth      bool
	}

	// Context is the per-connection handle spec.md §3 calls
	// TransportContext: the byte stream plus endpoints plus (nullable)
	// TLS info, plus Close.
	Context struct {
		Conn       net.Conn
		LocalAddr  net.Addr
		RemoteAddr net.Addr

		tlsConn    *tls.Conn
		secOnce    func() *SecurityInfo
		secCached  *SecurityInfo
	}

	// Listener is implemented by both the plain and the TLS provider.
	Listener interface {
		// Start begins accepting. It returns once the listening socket
		// is bound (or on bind error); Accept is driven by the caller.
		Start() error
		// Accept blocks for the next connection, or returns an error
		// once Stop has closed the listening socket. A TLS listener
		// may continue the loop internally on a non-fatal handshake
		// failure (§4.2); callers only ever see Accept return for a
		// connection they must handle, or a terminal error.
		Accept() (*Context, error)
		// Stop closes the listening socket; in-flight Accept calls
		// return an error.
		Stop() error
		Addr() net.Addr
	}
)

const (
	// SchedulingInline runs continuations on the accepting goroutine.
	// Only legal without TLS (§4.2, §5).
	SchedulingInline SchedulingMode = iota
	// SchedulingThreadPool dispatches each connection onto its own
	// goroutine. Default; mandatory with TLS.
	SchedulingThreadPool
)

// DefaultKeepAliveTimeout matches the stdlib default applied by
// net.ListenConfig when KeepAlive is left unset.
const DefaultKeepAliveTimeout = 15 * time.Second

// Key returns the hashable identity used to collapse duplicate listener
// declarations (spec.md §4.1): two declarations that agree on every
// field of Interface mean "the same physical socket."
func (i Interface) Key() Interface {
	return i
}

func (c *Context) Close() error {
	return c.Conn.Close()
}

// Security lazily computes and caches the TLS security info for the
// connection's lifetime (spec.md §9 "Lazy TransportSecurityInfo").
// Returns nil for a non-TLS connection.
func (c *Context) Security() *SecurityInfo {
	if c.tlsConn == nil {
		return nil
	}
	if c.secCached == nil {
		c.secCached = c.secOnce()
	}
	return c.secCached
}
