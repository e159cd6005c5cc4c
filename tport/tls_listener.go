/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

// TLSListener is the TLS-terminating transport provider of spec.md §4.2.
// Scheduling is always SchedulingThreadPool: TLS streams dispatch internal
// reads on the ambient scheduler and would deadlock an inline one (§4.2, §9).
type TLSListener struct {
	Iface  Interface
	Opts   SocketOptions
	Logger logrus.FieldLogger

	plain *PlainListener
	cert  tls.Certificate
}

// NewTLSListener loads the interface's certificate and builds a provider.
// The certificate-selection callback (§4.2) always returns this single
// certificate; there is no SNI-based selection.
func NewTLSListener(iface Interface, opts SocketOptions, log logrus.FieldLogger) (*TLSListener, error) {
	cert, err := tls.LoadX509KeyPair(iface.CertFile, iface.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("tport: loading certificate for %s:%d: %w", iface.Address, iface.Port, err)
	}
	return &TLSListener{
		Iface:  iface,
		Opts:   opts,
		Logger: log,
		plain:  NewPlainListener(iface, opts, log),
		cert:   cert,
	}, nil
}

func (t *TLSListener) tlsConfig() *tls.Config {
	cfg := &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return &t.cert, nil
		},
	}
	if t.Iface.ClientCertRequired {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	} else {
		cfg.ClientAuth = tls.RequestClientCert
	}
	// Client-certificate validation: when required, crypto/tls
	// (RequireAndVerifyClientCert) rejects a missing or unverifiable
	// certificate. When optional, a missing certificate is accepted, and
	// a presented one is accepted without chain verification.
	cfg.VerifyPeerCertificate = func(rawCerts [][]byte, chains [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			if t.Iface.ClientCertRequired {
				return errNoClientCert
			}
			return nil
		}
		return nil
	}
	if !t.Iface.UseOSCiphers {
		cfg.CipherSuites = preferredCipherSuites
	}
	return cfg
}

func (t *TLSListener) Start() error {
	return t.plain.Start()
}

// Accept performs the handshake. Per spec.md §4.2 a non-TLS first record
// is logged at debug and the accept loop continues with the next raw
// connection; any other handshake failure closes the connection and is
// returned to the caller.
func (t *TLSListener) Accept() (*Context, error) {
	for {
		raw, err := t.plain.Accept()
		if err != nil {
			return nil, err
		}
		tlsConn := tls.Server(raw.Conn, t.tlsConfig())
		if err := tlsConn.Handshake(); err != nil {
			_ = raw.Close()
			if isNonTLSFrame(err) {
				if t.Logger != nil {
					t.Logger.WithError(err).Debug("non-TLS bytes on TLS listener; connection closed, continuing accept loop")
				}
				continue
			}
			return nil, fmt.Errorf("tport: TLS handshake failed: %w", err)
		}
		ctx := &Context{
			Conn:       tlsConn,
			LocalAddr:  raw.LocalAddr,
			RemoteAddr: raw.RemoteAddr,
			tlsConn:    tlsConn,
		}
		ctx.secOnce = func() *SecurityInfo { return securityInfoOf(tlsConn, t.Iface.ClientCertRequired) }
		return ctx, nil
	}
}

func (t *TLSListener) Stop() error {
	return t.plain.Stop()
}

func (t *TLSListener) Addr() net.Addr {
	return t.plain.Addr()
}

var errNoClientCert = fmt.Errorf("tport: remote certificate not available")

// isNonTLSFrame distinguishes "the client didn't speak TLS at all" from a
// real handshake failure (expired cert, cipher mismatch, bad client cert).
// The check matches the text of the error crypto/tls returns for this
// case, not an error type.
func isNonTLSFrame(err error) bool {
	return strings.Contains(err.Error(), "first record does not look like a TLS handshake")
}

func securityInfoOf(c *tls.Conn, clientCertRequired bool) *SecurityInfo {
	state := c.ConnectionState()
	info := &SecurityInfo{
		Protocol:        tlsVersionName(state.Version),
		CipherSuite:     state.CipherSuite,
		NegotiatedALPN:  state.NegotiatedProtocol,
		PeerCertPresent: len(state.PeerCertificates) > 0,
	}
	info.MutualAuth = clientCertRequired && info.PeerCertPresent
	return info
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS1.0"
	case tls.VersionTLS11:
		return "TLS1.1"
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return "unknown"
	}
}

// preferredCipherSuites is used when the interface opts out of the OS's
// default cipher preference order (§3 TransportInterface.use_os_ciphers).
var preferredCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
}
