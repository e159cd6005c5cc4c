/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tport

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"github.com/sirupsen/logrus"
)

// PlainListener is the non-TLS transport provider of spec.md §4.2.
type PlainListener struct {
	Iface   Interface
	Opts    SocketOptions
	Logger  logrus.FieldLogger
	Sched   SchedulingMode

	ln net.Listener
}

// NewPlainListener builds a provider for iface; the provider does not bind
// until Start is called, matching spec.md §4.1's "instantiate exactly one
// transport provider per interface" (the planner instantiates, the server
// later Starts).
func NewPlainListener(iface Interface, opts SocketOptions, log logrus.FieldLogger) *PlainListener {
	return &PlainListener{Iface: iface, Opts: opts, Logger: log, Sched: SchedulingThreadPool}
}

func (p *PlainListener) Start() error {
	addr := fmt.Sprintf("%s:%d", p.Iface.Address, p.Iface.Port)
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				if p.Opts.ReuseAddress {
					ctrlErr = setSockOptBool(fd, soReuseAddr, true)
				}
				if p.Opts.ReusePort {
					if err := setReusePort(fd); err != nil && p.Logger != nil {
						p.Logger.WithError(err).Warn("SO_REUSEPORT not supported on this platform")
					}
				}
				if p.Opts.SendBuffer > 0 {
					_ = setSockOptInt(fd, soSndBuf, p.Opts.SendBuffer)
				}
				if p.Opts.RecvBuffer > 0 {
					_ = setSockOptInt(fd, soRcvBuf, p.Opts.RecvBuffer)
				}
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	// TCP_NODELAY has no benefit on an encrypted stream; warn and skip it
	// (spec.md §4.2).
	if p.Iface.TCPNoDelay && p.Iface.SSL && p.Logger != nil {
		p.Logger.Warn("tcp_nodelay requested on a TLS interface has no effect; ignoring")
	}

	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	p.ln = ln
	return nil
}

func (p *PlainListener) Accept() (*Context, error) {
	conn, err := p.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok && p.Iface.TCPNoDelay && !p.Iface.SSL {
		_ = tc.SetNoDelay(true)
	}
	return &Context{
		Conn:       conn,
		LocalAddr:  conn.LocalAddr(),
		RemoteAddr: conn.RemoteAddr(),
	}, nil
}

func (p *PlainListener) Stop() error {
	if p.ln == nil {
		return nil
	}
	return p.ln.Close()
}

func (p *PlainListener) Addr() net.Addr {
	if p.ln == nil {
		return nil
	}
	return p.ln.Addr()
}
